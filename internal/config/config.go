// Package config loads the shipcode configuration from a YAML file, a .env
// file, SHIPCODE_ environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/vvatanabe/shipcode"
	"github.com/vvatanabe/shipcode/internal/constant"
	"github.com/vvatanabe/shipcode/internal/export"
	"github.com/vvatanabe/shipcode/internal/prefs"
)

const (
	EnvPrefix      = "SHIPCODE"
	DefaultEnvFile = ".env"
	configName     = "shipcode"
)

type APIConfig struct {
	BaseURL string        `mapstructure:"baseURL"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PrefsConfig struct {
	Backend  string `mapstructure:"backend"`
	Path     string `mapstructure:"path"`
	Table    string `mapstructure:"table"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

type ExportConfig struct {
	Dir             string `mapstructure:"dir"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Prefix          string `mapstructure:"prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"accessKeyID"`
	SecretAccessKey string `mapstructure:"secretAccessKey"`
	PublicDomain    string `mapstructure:"publicDomain"`
	Concurrency     int    `mapstructure:"concurrency"`
}

type PreviewConfig struct {
	Addr         string   `mapstructure:"addr"`
	AllowOrigins []string `mapstructure:"allowOrigins"`
}

type DebounceConfig struct {
	Generator time.Duration `mapstructure:"generator"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Prefs    PrefsConfig    `mapstructure:"prefs"`
	Export   ExportConfig   `mapstructure:"export"`
	Preview  PreviewConfig  `mapstructure:"preview"`
	Debounce DebounceConfig `mapstructure:"debounce"`
	Log      LogConfig      `mapstructure:"log"`
}

// Default returns the configuration used when nothing is configured.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL: constant.DefaultBaseURL,
			Timeout: constant.DefaultRequestTimeout,
		},
		Prefs: PrefsConfig{
			Backend: string(prefs.BackendFile),
			Path:    constant.DefaultPreferencesFile,
			Table:   constant.DefaultPreferencesTable,
		},
		Export: ExportConfig{
			Dir:         constant.DefaultExportDir,
			Concurrency: constant.DefaultExportConcurrency,
		},
		Preview: PreviewConfig{
			Addr:         constant.DefaultPreviewAddr,
			AllowOrigins: []string{"*"},
		},
		Debounce: DebounceConfig{
			Generator: constant.DefaultGeneratorDelay,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// FlagKeys maps command line flag names to configuration keys.
var FlagKeys = map[string]string{
	"base-url":      "api.baseURL",
	"token":         "api.token",
	"prefs":         "prefs.path",
	"prefs-backend": "prefs.backend",
	"log-level":     "log.level",
}

type LoadOptions struct {
	// File is an explicit configuration file. When empty, shipcode.yaml is
	// looked up in Dirs and its absence is not an error.
	File string
	Dirs []string
	// EnvFile is loaded into the environment when it exists. Variables that
	// are already set win.
	EnvFile string
	// Flags that were changed on the command line override every other source.
	Flags *pflag.FlagSet
}

func WithFile(file string) func(*LoadOptions) {
	return func(o *LoadOptions) {
		o.File = file
	}
}

func WithDirs(dirs ...string) func(*LoadOptions) {
	return func(o *LoadOptions) {
		o.Dirs = dirs
	}
}

func WithEnvFile(file string) func(*LoadOptions) {
	return func(o *LoadOptions) {
		o.EnvFile = file
	}
}

func WithFlags(flags *pflag.FlagSet) func(*LoadOptions) {
	return func(o *LoadOptions) {
		o.Flags = flags
	}
}

// Load reads the configuration. Sources are applied in this order, later
// ones winning: defaults, configuration file, environment, flags.
func Load(optFns ...func(*LoadOptions)) (Config, error) {
	o := &LoadOptions{
		Dirs:    []string{"."},
		EnvFile: DefaultEnvFile,
	}
	for _, opt := range optFns {
		opt(o)
	}

	if o.EnvFile != "" {
		if err := godotenv.Load(o.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", o.EnvFile, err)
		}
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if o.Flags != nil {
		for name, key := range FlagKeys {
			if f := o.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, err
				}
			}
		}
	}

	if o.File != "" {
		v.SetConfigFile(o.File)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		for _, dir := range o.Dirs {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if o.File != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read configuration: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("api.baseURL", d.API.BaseURL)
	v.SetDefault("api.token", d.API.Token)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("prefs.backend", d.Prefs.Backend)
	v.SetDefault("prefs.path", d.Prefs.Path)
	v.SetDefault("prefs.table", d.Prefs.Table)
	v.SetDefault("prefs.region", d.Prefs.Region)
	v.SetDefault("prefs.endpoint", d.Prefs.Endpoint)
	v.SetDefault("export.dir", d.Export.Dir)
	v.SetDefault("export.bucket", d.Export.Bucket)
	v.SetDefault("export.region", d.Export.Region)
	v.SetDefault("export.prefix", d.Export.Prefix)
	v.SetDefault("export.endpoint", d.Export.Endpoint)
	v.SetDefault("export.accessKeyID", d.Export.AccessKeyID)
	v.SetDefault("export.secretAccessKey", d.Export.SecretAccessKey)
	v.SetDefault("export.publicDomain", d.Export.PublicDomain)
	v.SetDefault("export.concurrency", d.Export.Concurrency)
	v.SetDefault("preview.addr", d.Preview.Addr)
	v.SetDefault("preview.allowOrigins", d.Preview.AllowOrigins)
	v.SetDefault("debounce.generator", d.Debounce.Generator)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Validate reports values that no component could work with.
func (c Config) Validate() error {
	if _, err := prefs.ParseBackend(c.Prefs.Backend); err != nil {
		return err
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q: want text or json", c.Log.Format)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if c.Export.Concurrency < 1 {
		return fmt.Errorf("export.concurrency must be at least 1")
	}
	return nil
}

// APIDefaults is the start-up API configuration handed to the ConfigManager.
func (c Config) APIDefaults() shipcode.APIConfig {
	return shipcode.APIConfig{BaseURL: c.API.BaseURL, BearerToken: c.API.Token}
}

func (c Config) PrefsOptions(logger *slog.Logger) prefs.Options {
	backend, _ := prefs.ParseBackend(c.Prefs.Backend)
	return prefs.Options{
		Backend:  backend,
		Path:     c.Prefs.Path,
		Table:    c.Prefs.Table,
		Region:   c.Prefs.Region,
		Endpoint: c.Prefs.Endpoint,
		Logger:   logger,
	}
}

func (c Config) S3Config() export.S3Config {
	return export.S3Config{
		Bucket:          c.Export.Bucket,
		Region:          c.Export.Region,
		Prefix:          c.Export.Prefix,
		AccessKeyID:     c.Export.AccessKeyID,
		SecretAccessKey: c.Export.SecretAccessKey,
		Endpoint:        c.Export.Endpoint,
		PublicDomain:    c.Export.PublicDomain,
	}
}

// NewLogger builds the process logger described by the log section.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q: want debug, info, warn or error", s)
	}
	return level, nil
}

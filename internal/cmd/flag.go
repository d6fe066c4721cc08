package cmd

import (
	"github.com/spf13/cobra"
	"github.com/vvatanabe/shipcode/internal/constant"
)

var flgs = &Flags{}

type Flags struct {
	ConfigFile   string
	EnvFile      string
	BaseURL      string
	Token        string
	PrefsPath    string
	PrefsBackend string
	LogLevel     string

	Kind   string
	Color  string
	Output string
	File   string
	Dir    string
	Bucket string
	Addr   string
	Flush  bool
}

var flagMap = FlagMap{
	ConfigFile: FlagSet[string]{
		Name:  "config",
		Usage: "Path of the configuration file. Defaults to ./shipcode.yaml when present.",
		Value: "",
	},
	EnvFile: FlagSet[string]{
		Name:  "env-file",
		Usage: "Path of a .env file loaded before reading the environment.",
		Value: ".env",
	},
	BaseURL: FlagSet[string]{
		Name:  "base-url",
		Usage: "Base URL of the shipment API.",
		Value: "",
	},
	Token: FlagSet[string]{
		Name:  "token",
		Usage: "Bearer token sent to the shipment API.",
		Value: "",
	},
	PrefsPath: FlagSet[string]{
		Name:  "prefs",
		Usage: "Path of the preferences file.",
		Value: "",
	},
	PrefsBackend: FlagSet[string]{
		Name:  "prefs-backend",
		Usage: "Preference backend: memory, file or dynamodb.",
		Value: "",
	},
	LogLevel: FlagSet[string]{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn or error.",
		Value: "",
	},
	Kind: FlagSet[string]{
		Name:  "kind",
		Usage: "Code kind: linear or qr.",
		Value: "linear",
	},
	Color: FlagSet[string]{
		Name:  "color",
		Usage: "Ink colour as #RRGGBB. Defaults to the saved theme colour.",
		Value: "",
	},
	Output: FlagSet[string]{
		Name:  "output",
		Usage: "File to write the rendered code to. Defaults to stdout.",
		Value: "",
	},
	File: FlagSet[string]{
		Name:  "file",
		Usage: "JSON file with the request body. Use - for stdin.",
		Value: "-",
	},
	Dir: FlagSet[string]{
		Name:  "dir",
		Usage: "Directory to export codes to.",
		Value: constant.DefaultExportDir,
	},
	Bucket: FlagSet[string]{
		Name:  "bucket",
		Usage: "S3 bucket to export codes to instead of a directory.",
		Value: "",
	},
	Addr: FlagSet[string]{
		Name:  "addr",
		Usage: "Address the preview server listens on.",
		Value: "",
	},
	Flush: FlagSet[bool]{
		Name:  "flush",
		Usage: "Render immediately instead of after the debounce window.",
		Value: true,
	},
}

type FlagSet[T any] struct {
	Name  string
	Usage string
	Value T
}

type FlagMap struct {
	ConfigFile   FlagSet[string]
	EnvFile      FlagSet[string]
	BaseURL      FlagSet[string]
	Token        FlagSet[string]
	PrefsPath    FlagSet[string]
	PrefsBackend FlagSet[string]
	LogLevel     FlagSet[string]
	Kind         FlagSet[string]
	Color        FlagSet[string]
	Output       FlagSet[string]
	File         FlagSet[string]
	Dir          FlagSet[string]
	Bucket       FlagSet[string]
	Addr         FlagSet[string]
	Flush        FlagSet[bool]
}

func setPersistentFlags(c *cobra.Command, flgs *Flags) {
	f := c.PersistentFlags()
	f.StringVar(&flgs.ConfigFile, flagMap.ConfigFile.Name, flagMap.ConfigFile.Value, flagMap.ConfigFile.Usage)
	f.StringVar(&flgs.EnvFile, flagMap.EnvFile.Name, flagMap.EnvFile.Value, flagMap.EnvFile.Usage)
	f.StringVar(&flgs.BaseURL, flagMap.BaseURL.Name, flagMap.BaseURL.Value, flagMap.BaseURL.Usage)
	f.StringVar(&flgs.Token, flagMap.Token.Name, flagMap.Token.Value, flagMap.Token.Usage)
	f.StringVar(&flgs.PrefsPath, flagMap.PrefsPath.Name, flagMap.PrefsPath.Value, flagMap.PrefsPath.Usage)
	f.StringVar(&flgs.PrefsBackend, flagMap.PrefsBackend.Name, flagMap.PrefsBackend.Value, flagMap.PrefsBackend.Usage)
	f.StringVar(&flgs.LogLevel, flagMap.LogLevel.Name, flagMap.LogLevel.Value, flagMap.LogLevel.Usage)
}

func setRenderFlags(c *cobra.Command, flgs *Flags) {
	c.Flags().StringVar(&flgs.Kind, flagMap.Kind.Name, flagMap.Kind.Value, flagMap.Kind.Usage)
	c.Flags().StringVar(&flgs.Color, flagMap.Color.Name, flagMap.Color.Value, flagMap.Color.Usage)
	c.Flags().StringVarP(&flgs.Output, flagMap.Output.Name, "o", flagMap.Output.Value, flagMap.Output.Usage)
}

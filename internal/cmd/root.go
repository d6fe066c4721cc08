package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vvatanabe/shipcode"
	"github.com/vvatanabe/shipcode/internal/clock"
	"github.com/vvatanabe/shipcode/internal/config"
	"github.com/vvatanabe/shipcode/internal/editor"
	"github.com/vvatanabe/shipcode/internal/export"
	"github.com/vvatanabe/shipcode/internal/prefs"
)

// CommandFactory builds the command tree. Every field may be left nil to
// use the production implementation.
type CommandFactory struct {
	LoadConfig      func(cmd *cobra.Command, flags *Flags) (config.Config, error)
	OpenPreferences func(ctx context.Context, opts prefs.Options) prefs.Store
	CreateClient    func(cfg shipcode.ConfigProvider, optFns ...func(*shipcode.ClientOptions)) shipcode.Client
	CreateSink      func(ctx context.Context, cfg config.Config, flags *Flags) (export.Sink, error)
	Clock           clock.Clock

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

var defaultCommandFactory = CommandFactory{
	LoadConfig:      loadConfig,
	OpenPreferences: prefs.Open,
	CreateClient:    shipcode.NewClient,
	CreateSink:      createSink,
	Clock:           clock.RealClock{},
}

var root = defaultCommandFactory.CreateRootCommand(flgs)

func (f CommandFactory) CreateRootCommand(flgs *Flags) *cobra.Command {
	c := &cobra.Command{
		Use:   "shipcode",
		Short: "shipcode looks up shipment deliveries and renders their numbers as barcodes and QR codes",
		Long: `shipcode looks up, creates and updates shipment deliveries through the shipment API
and renders every number as a Code 128 barcode or a QR code.

Run without a subcommand to start the interactive shipment manager.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.runInteractive(cmd, flgs)
		},
	}
	setPersistentFlags(c, flgs)
	c.AddCommand(
		f.CreateSearchCommand(flgs),
		f.CreateCreateCommand(flgs),
		f.CreateUpdateCommand(flgs),
		f.CreatePingCommand(flgs),
		f.CreateConfigCommand(flgs),
		f.CreateRenderCommand(flgs),
		f.CreateCardsCommand(flgs),
		f.CreateExportCommand(flgs),
		f.CreateServeCommand(flgs),
	)
	return c
}

func (f CommandFactory) runInteractive(cmd *cobra.Command, flgs *Flags) error {
	out := f.stdout()
	defer fmt.Fprintf(out, "... Interactive is ending\n\n\n")

	fmt.Fprintln(out, "===========================================================")
	fmt.Fprintln(out, ">> Welcome to shipcode! [INTERACTIVE MODE]")
	fmt.Fprintln(out, "===========================================================")
	fmt.Fprintln(out, "for help, enter one of the following: ? or h or help")
	fmt.Fprintln(out, "all commands need to be typed in lowercase")
	fmt.Fprintln(out, "")

	s, err := f.newSession(cmd, flgs)
	if err != nil {
		return fmt.Errorf("... %v", err)
	}
	e := s.newEditor()
	defer e.Close()

	cfg := s.api.Current()
	fmt.Fprintf(out, "BaseURL: %s\n", cfg.BaseURL)
	fmt.Fprintf(out, "Token: %s\n", maskToken(cfg.BearerToken))
	if term := e.SearchTerm(); term != "" {
		fmt.Fprintf(out, "Last search: %s\n", term)
	}
	fmt.Fprintln(out, "")

	c := Interactive{
		Editor: e,
		Config: s.api,
		Out:    out,
		Sink: func(ctx context.Context, dir string) (export.Sink, error) {
			if dir == "" {
				dir = s.cfg.Export.Dir
			}
			return export.DirSink{Dir: dir}, nil
		},
		Concurrency: s.cfg.Export.Concurrency,
		Logger:      s.logger,
	}

	scanner := bufio.NewScanner(f.stdin())
	ctx := commandContext(cmd)
	for {
		fmt.Fprintf(out, "\n%s >> Enter command: ", c.prompt())

		if !scanner.Scan() {
			break
		}
		command, params := parseInput(scanner.Text())
		switch command {
		case "":
			continue
		case "quit", "q", "exit":
			return nil
		default:
			if err := c.Run(ctx, command, params); err != nil {
				printError(out, err)
			}
			c.flushNotice()
		}
	}
	return nil
}

func parseInput(input string) (command string, params []string) {
	arr := strings.Fields(strings.TrimSpace(input))
	if len(arr) == 0 {
		return "", nil
	}
	command = strings.ToLower(arr[0])
	if len(arr) > 1 {
		params = make([]string, len(arr)-1)
		for i := 1; i < len(arr); i++ {
			params[i-1] = strings.TrimSpace(arr[i])
		}
	}
	return command, params
}

// session holds what every command needs once configuration is loaded.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	prefs  *prefs.Preferences
	api    *shipcode.ConfigManager
	client shipcode.Client
	clock  clock.Clock
}

func (f CommandFactory) newSession(cmd *cobra.Command, flgs *Flags) (*session, error) {
	load := f.LoadConfig
	if load == nil {
		load = loadConfig
	}
	cfg, err := load(cmd, flgs)
	if err != nil {
		return nil, err
	}
	logger, err := cfg.Log.NewLogger(f.stderr())
	if err != nil {
		return nil, err
	}
	open := f.OpenPreferences
	if open == nil {
		open = prefs.Open
	}
	p := prefs.New(open(commandContext(cmd), cfg.PrefsOptions(logger)), logger)
	api := shipcode.NewConfigManager(cfg.APIDefaults(), p, shipcode.WithConfigLogger(logger))
	create := f.CreateClient
	if create == nil {
		create = shipcode.NewClient
	}
	clk := f.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	client := create(api,
		shipcode.WithTimeout(cfg.API.Timeout),
		shipcode.WithLogger(logger),
		shipcode.WithClock(clk))
	return &session{
		cfg:    cfg,
		logger: logger,
		prefs:  p,
		api:    api,
		client: client,
		clock:  clk,
	}, nil
}

func (s *session) newEditor() *editor.Editor {
	return editor.New(s.client, s.prefs, editor.WithLogger(s.logger), editor.WithConfig(s.api))
}

func loadConfig(cmd *cobra.Command, flgs *Flags) (config.Config, error) {
	return config.Load(
		config.WithFile(flgs.ConfigFile),
		config.WithEnvFile(flgs.EnvFile),
		config.WithFlags(cmd.Flags()))
}

func createSink(ctx context.Context, cfg config.Config, flgs *Flags) (export.Sink, error) {
	bucket := flgs.Bucket
	if bucket == "" {
		bucket = cfg.Export.Bucket
	}
	if bucket == "" {
		dir := flgs.Dir
		if dir == "" {
			dir = cfg.Export.Dir
		}
		return export.DirSink{Dir: dir}, nil
	}
	s3cfg := cfg.S3Config()
	s3cfg.Bucket = bucket
	return export.NewS3Sink(ctx, s3cfg)
}

func (f CommandFactory) stdin() io.Reader {
	if f.Stdin != nil {
		return f.Stdin
	}
	return os.Stdin
}

func (f CommandFactory) stdout() io.Writer {
	if f.Stdout != nil {
		return f.Stdout
	}
	return os.Stdout
}

func (f CommandFactory) stderr() io.Writer {
	if f.Stderr != nil {
		return f.Stderr
	}
	return os.Stderr
}

func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

func maskToken(token string) string {
	if token == "" {
		return "(none)"
	}
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

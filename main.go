package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lumen/internal/app"
	"lumen/internal/backend"
	"lumen/internal/config"
	"lumen/internal/conversation"
	"lumen/internal/db"
	"lumen/internal/logging"
	"lumen/internal/media"
	"lumen/internal/models"
	"lumen/internal/persist"
	"lumen/internal/render"
	"lumen/internal/session"
	"lumen/internal/ui"
)

var (
	// Global flags
	configPath  string
	backendName string
	verbose     bool

	// ask flags
	askImage string
	askDev   bool

	// config init flags
	forceInit bool
)

var rootCmd = &cobra.Command{
	Use:   "lumen",
	Short: "Lumen - a multimodal Gemini assistant for the terminal",
	Long: `Lumen chats with Gemini models from the terminal. Each message is routed to
a model and toolset from what it asks: search and maps grounding, extended
reasoning, or image and video analysis.

Run without arguments to start the interactive interface.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd.Context())
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Send one message and print the rendered answer",
	Long: `Runs a single exchange without the interface. The exchange joins the saved
conversation, so earlier turns are sent as context.

Example:
  lumen ask "what changed in Go 1.24?"
  lumen ask --image diagram.png "explain this"`,
	RunE: runAsk,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the saved conversation and developer settings",
	RunE:  runReset,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Long: `Writes the default settings to the config file so they can be edited.
API keys are read from the environment and are never written to the file.`,
	RunE: runConfigInit,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.config/lumen/config.toml)")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "Backend: gemini or openrouter (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	askCmd.Flags().StringVarP(&askImage, "image", "i", "", "Image or video file to attach")
	askCmd.Flags().BoolVar(&askDev, "dev", false, "Apply the saved developer settings")

	configInitCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(askCmd, resetCmd, configCmd)
}

// env holds what every command opens at startup.
type env struct {
	cfg     config.Config
	log     *zap.Logger
	db      *db.Store
	persist *persist.Adapter
	conv    *conversation.Store
}

func setup() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if backendName != "" {
		cfg.Backend = backendName
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if verbose {
		cfg.Verbose = true
	}

	dir := cfg.DataDir
	if dir == "" {
		if dir, err = db.DefaultDir(); err != nil {
			return nil, err
		}
	}

	logger, err := logging.New(cfg.LogPath(dir), cfg.Verbose)
	if err != nil {
		return nil, err
	}

	store, err := db.OpenLumenDB(dir)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("open database: %w", err)
	}

	p := persist.New(store, logger)
	return &env{
		cfg:     cfg,
		log:     logger,
		db:      store,
		persist: p,
		conv:    conversation.New(p.LoadHistory()),
	}, nil
}

func (e *env) Close() {
	if err := e.db.Close(); err != nil {
		e.log.Warn("close database", zap.Error(err))
	}
	_ = e.log.Sync()
}

func (e *env) driver(ctx context.Context, r session.Renderer) (*session.Driver, error) {
	key, err := e.cfg.APIKey()
	if err != nil {
		return nil, err
	}
	b, err := backend.New(ctx, backend.Config{Kind: backend.Kind(e.cfg.Backend), APIKey: key}, e.log)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}
	return session.New(b, e.conv,
		session.WithRenderer(r),
		session.WithHistorySaver(e.persist),
		session.WithLogger(e.log),
		session.WithOptions(session.Options{
			MaxReplayMessages: e.cfg.Session.MaxReplayMessages,
			Timeout:           e.cfg.Timeout(),
		}),
	), nil
}

func runInteractive(ctx context.Context) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	renderer, err := render.NewResizable(e.cfg.Markdown.Style, e.cfg.Markdown.WordWrap)
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	driver, err := e.driver(ctx, renderer)
	if err != nil {
		return err
	}

	ctrl := app.New(e.conv, driver, e.persist, e.log)
	p := ui.NewProgram(ctrl, renderer, e.log)
	driver.SetObserver(ui.Observer(p))

	e.log.Info("interactive session started",
		zap.String("backend", e.cfg.Backend),
		zap.Int("history", e.conv.Len()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run interface: %w", err)
	}
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" && askImage == "" {
		return errors.New("ask needs a prompt or --image")
	}

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	md, err := render.New(e.cfg.Markdown.Style, e.cfg.Markdown.WordWrap)
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	driver, err := e.driver(ctx, md)
	if err != nil {
		return err
	}

	in := session.Input{Text: prompt, DevMode: askDev}
	if askDev {
		in.DevConfig = e.persist.LoadDevConfig()
	}
	if askImage != "" {
		att, err := media.Decode(askImage)
		if err != nil {
			return fmt.Errorf("attach %s: %w", askImage, err)
		}
		in.Attachment = &att
	}

	out, err := driver.Send(ctx, in)
	if err != nil {
		if errors.Is(err, session.ErrCancelled) || errors.Is(err, context.Canceled) {
			return errors.New("interrupted")
		}
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "[%s]\n%s\n", out.Mode, out.Rendered)
	if len(out.Sources) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for i, s := range out.Sources {
			fmt.Fprintf(w, "  %d. %s (%s)%s\n", i+1, s.Title, s.Domain, placeSuffix(s))
			if s.URI != "" {
				fmt.Fprintf(w, "     %s\n", s.URI)
			}
		}
	}
	return nil
}

func placeSuffix(s models.SourceCard) string {
	if s.Kind == models.SourcePlace {
		return " [place]"
	}
	return ""
}

func runReset(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	stored, err := e.db.Keys()
	if err != nil {
		return fmt.Errorf("list saved records: %w", err)
	}
	owned := slices.DeleteFunc(stored, func(k string) bool {
		return !slices.Contains(persist.Keys, k)
	})

	e.persist.Reset()
	e.log.Info("persisted state reset", zap.Strings("keys", owned))
	fmt.Fprintf(cmd.OutOrStdout(), "Conversation and developer settings cleared (%d saved records removed).\n", len(owned))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil && !forceInit {
		return fmt.Errorf("%s already exists; pass --force to overwrite", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	cfg := config.Default()
	if backendName != "" {
		cfg.Backend = backendName
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/bulgusearch/bulgu"
	"github.com/bulgusearch/bulgu/sqlstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct{}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config  string `short:"c" default:"config.json" help:"Path to the configuration file"`
	Verbose bool   `short:"v" help:"Enable debug logging"`

	Run      RunCmd      `cmd:"" help:"Run crawl pipeline stages until interrupted"`
	Index    IndexCmd    `cmd:"" help:"Rebuild the document index once"`
	Analyze  AnalyzeCmd  `cmd:"" help:"Recompute domain authority scores once"`
	Search   SearchCmd   `cmd:"" help:"Query the index"`
	Schedule ScheduleCmd `cmd:"" help:"Keep the indexer and analyzer running on their intervals"`
}

// Dependencies carries the wired services every command runs against.
type Dependencies struct {
	Ctx    context.Context
	Config *bulgu.Config
	DB     *sqlstore.DB
	Logger *slog.Logger
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("bulgu"),
		kong.Description("Turkish-content web search engine pipeline"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command provided")
	}

	if len(args) == 1 && (args[0] == "--help" || args[0] == "-h" || args[0] == "help") {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := bulgu.LoadConfig(cli.Config)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	db, err := sqlstore.OpenDefault(cfg.Storage)
	if err != nil {
		return err
	}
	defer db.Close()

	deps := &Dependencies{
		Ctx:    ctx,
		Config: cfg,
		DB:     db,
		Logger: logger,
		Stdout: stdout,
		Stderr: stderr,
	}

	return kctx.Run(deps)
}

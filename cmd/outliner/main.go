// Package main is the command-line front end for outline documents.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/outliner/internal/app"
	"github.com/dshills/outliner/internal/config"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath string
	document   string
	debug      bool
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	var showVersion bool

	fs := flag.NewFlagSet("outliner", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	fs.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	fs.StringVar(&opts.document, "doc", "", "Document name (defaults to storage.path or storage.document)")
	fs.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&opts.debug, "d", false, "Enable debug logging (shorthand)")
	fs.BoolVar(&showVersion, "version", false, "Show version information")
	fs.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Outliner - outline documents with clones and undo\n\n")
		fmt.Fprintf(stderr, "Usage: outliner [options] <command> [args]\n\n")
		fmt.Fprintf(stderr, "Commands:\n")
		for _, c := range commands {
			fmt.Fprintf(stderr, "  %-28s %s\n", c.name+" "+c.args, c.help)
		}
		fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if showVersion {
		fmt.Fprintf(stdout, "Outliner %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return 0
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	cmd, ok := lookup(fs.Arg(0))
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown command %q\n", fs.Arg(0))
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings, err := loadSettings(ctx, opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: configuration: %v\n", err)
		return 1
	}

	appOpts := app.Options{}
	if settings.Logging.File == "" {
		appOpts.LogOutput = stderr
	}
	application, err := app.New(settings, appOpts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer application.Close()

	env := &session{
		app:    application,
		name:   documentName(settings, opts.document),
		stdout: stdout,
	}
	if err := cmd.run(ctx, env, fs.Args()[1:]); err != nil {
		fmt.Fprintf(stderr, "Error: %s: %v\n", cmd.name, err)
		return 1
	}
	return 0
}

func loadSettings(ctx context.Context, opts options) (config.Settings, error) {
	path := opts.configPath
	if path == "" {
		path = config.FindFile(".")
	}
	cfg := config.New(config.WithFile(path))
	defer cfg.Close()
	if err := cfg.Load(ctx); err != nil {
		return config.Settings{}, err
	}
	s := cfg.Settings()
	if opts.debug {
		s.Logging.Level = "debug"
	}
	return s, nil
}

// documentName picks the storage name: a file path for the json backend,
// a row key for sqlite.
func documentName(s config.Settings, override string) string {
	if override != "" {
		return override
	}
	if s.Storage.Backend == config.BackendSQLite {
		return s.Storage.Document
	}
	return s.Storage.Path
}

// Package app wires configuration, logging, storage and the document
// manager into a running outliner.
package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dshills/outliner/internal/config"
	"github.com/dshills/outliner/internal/outline/commander"
	"github.com/dshills/outliner/internal/outline/ident"
	"github.com/dshills/outliner/internal/outline/mutate"
)

// Application owns the process-wide pieces: one id generator shared by
// every document, the logger, the storage backend and the open documents.
type Application struct {
	mu        sync.RWMutex
	settings  config.Settings
	logger    *Logger
	generator *ident.Generator
	storage   Storage
	documents *DocumentManager

	closers []func() error
}

// Options configures New.
type Options struct {
	// LogOutput overrides the configured log destination.
	LogOutput io.Writer
	// Storage overrides the configured backend.
	Storage Storage
}

// New builds an Application from settings.
func New(settings config.Settings, opts Options) (*Application, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	app := &Application{settings: settings}

	out := opts.LogOutput
	if out == nil && settings.Logging.File != "" {
		f, err := os.OpenFile(settings.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		app.closers = append(app.closers, f.Close)
		out = f
	}
	cfg := DefaultLoggerConfig()
	cfg.Level = ParseLogLevel(settings.Logging.Level)
	cfg.Output = out
	app.logger = NewLogger(cfg)

	ns := settings.Identity.Namespace
	if ns == "" {
		ns = ident.DefaultNamespace()
	}
	gen, err := ident.New(ns)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.generator = gen

	app.storage = opts.Storage
	if app.storage == nil {
		st, closeFn, err := OpenStorage(settings.Storage)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.storage = st
		app.closers = append(app.closers, closeFn)
	}

	app.documents = NewDocumentManager(app.storage, app.logger,
		commander.WithGenerator(gen),
		commander.WithMaxUndo(settings.History.MaxEntries),
		commander.WithCoalesceWindow(settings.History.CoalesceWindow),
		commander.WithLogger(app.logger.WithComponent("commander")),
	)
	app.logger.Debug("namespace %s, storage %s", ns, settings.Storage.Backend)
	return app, nil
}

// Settings returns the current settings.
func (app *Application) Settings() config.Settings {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.settings
}

// Logger returns the application logger.
func (app *Application) Logger() *Logger {
	return app.logger
}

// Generator returns the shared id generator.
func (app *Application) Generator() *ident.Generator {
	return app.generator
}

// Documents returns the document manager.
func (app *Application) Documents() *DocumentManager {
	return app.documents
}

// Storage returns the storage backend.
func (app *Application) Storage() Storage {
	return app.storage
}

// Comparator returns the configured sort comparator.
func (app *Application) Comparator() (mutate.Compare, func(), error) {
	return Comparator(app.Settings().Sort)
}

// ApplySettings updates the settings that can change while running. Open
// documents keep their history limits.
func (app *Application) ApplySettings(s config.Settings) {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.settings.Logging.Level = s.Logging.Level
	app.settings.Sort = s.Sort
	app.logger.SetLevel(ParseLogLevel(s.Logging.Level))
}

// Close releases storage and log files.
func (app *Application) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dshills/outliner/internal/config/loader"
)

// Settings is a typed snapshot of the configuration.
type Settings struct {
	Identity IdentitySettings
	History  HistorySettings
	Logging  LoggingSettings
	Storage  StorageSettings
	Sort     SortSettings
}

// IdentitySettings controls node id generation.
type IdentitySettings struct {
	// Namespace prefixes generated ids. Empty picks a random one.
	Namespace string
}

// HistorySettings controls undo history.
type HistorySettings struct {
	MaxEntries     int
	CoalesceWindow time.Duration
}

// LoggingSettings controls the logger.
type LoggingSettings struct {
	// Level is one of debug, info, warn, error.
	Level string
	// File receives log output. Empty means stderr.
	File string
}

// Storage backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// StorageSettings selects where documents live.
type StorageSettings struct {
	Backend string
	Path    string
	// Document names the document inside a sqlite database.
	Document string
}

// SortSettings configures sorting.
type SortSettings struct {
	// Script is a Lua file defining compare(a, b).
	Script     string
	IgnoreCase bool
}

func defaultConfig() map[string]any {
	return map[string]any{
		"identity": map[string]any{
			"namespace": "",
		},
		"history": map[string]any{
			"maxEntries":     1000,
			"coalesceWindow": "2s",
		},
		"logging": map[string]any{
			"level": "info",
			"file":  "",
		},
		"storage": map[string]any{
			"backend":  BackendJSON,
			"path":     "outline.json",
			"document": "main",
		},
		"sort": map[string]any{
			"script":     "",
			"ignoreCase": false,
		},
	}
}

// Default returns the built-in settings.
func Default() Settings {
	s, _ := decode(defaultConfig())
	return s
}

// decode builds Settings from a merged map.
func decode(data map[string]any) (Settings, error) {
	d := decoder{data: data}
	s := Settings{
		Identity: IdentitySettings{
			Namespace: d.str("identity.namespace"),
		},
		History: HistorySettings{
			MaxEntries:     d.integer("history.maxEntries"),
			CoalesceWindow: d.duration("history.coalesceWindow"),
		},
		Logging: LoggingSettings{
			Level: strings.ToLower(d.str("logging.level")),
			File:  d.str("logging.file"),
		},
		Storage: StorageSettings{
			Backend:  strings.ToLower(d.str("storage.backend")),
			Path:     d.str("storage.path"),
			Document: d.str("storage.document"),
		},
		Sort: SortSettings{
			Script:     d.str("sort.script"),
			IgnoreCase: d.boolean("sort.ignoreCase"),
		},
	}
	if d.err != nil {
		return Settings{}, d.err
	}
	return s, s.Validate()
}

// Validate checks value ranges.
func (s Settings) Validate() error {
	if strings.Contains(s.Identity.Namespace, ".") {
		return fmt.Errorf("%w: identity.namespace %q contains '.'", ErrInvalidValue, s.Identity.Namespace)
	}
	if s.History.MaxEntries < 0 {
		return fmt.Errorf("%w: history.maxEntries %d", ErrInvalidValue, s.History.MaxEntries)
	}
	if s.History.CoalesceWindow < 0 {
		return fmt.Errorf("%w: history.coalesceWindow %v", ErrInvalidValue, s.History.CoalesceWindow)
	}
	switch s.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: logging.level %q", ErrInvalidValue, s.Logging.Level)
	}
	switch s.Storage.Backend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("%w: storage.backend %q", ErrInvalidValue, s.Storage.Backend)
	}
	return nil
}

// decoder reads typed values and keeps the first error.
type decoder struct {
	data map[string]any
	err  error
}

func (d *decoder) get(path string) (any, bool) {
	return loader.GetPath(d.data, path)
}

func (d *decoder) fail(path string, v any, want string) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: %s is %T, want %s", ErrTypeMismatch, path, v, want)
	}
}

func (d *decoder) str(path string) string {
	v, ok := d.get(path)
	if !ok || v == nil {
		return ""
	}
	switch v := v.(type) {
	case string:
		return v
	case int, int64, float64, bool:
		// Environment values are typed eagerly; "0" is still a name.
		return fmt.Sprint(v)
	}
	d.fail(path, v, "string")
	return ""
}

func (d *decoder) integer(path string) int {
	v, ok := d.get(path)
	if !ok {
		return 0
	}
	switch v := v.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		if v <= math.MaxInt {
			return int(v)
		}
	case float64:
		if v == math.Trunc(v) {
			return int(v)
		}
	}
	d.fail(path, v, "integer")
	return 0
}

func (d *decoder) boolean(path string) bool {
	v, ok := d.get(path)
	if !ok {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	d.fail(path, v, "bool")
	return false
}

// duration accepts Go duration strings and numbers of seconds.
func (d *decoder) duration(path string) time.Duration {
	v, ok := d.get(path)
	if !ok {
		return 0
	}
	switch v := v.(type) {
	case time.Duration:
		return v
	case string:
		dur, err := time.ParseDuration(v)
		if err == nil {
			return dur
		}
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	}
	d.fail(path, v, "duration")
	return 0
}

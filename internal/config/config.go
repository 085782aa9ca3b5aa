package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/dshills/outliner/internal/config/loader"
	"github.com/dshills/outliner/internal/config/watcher"
)

// DefaultFileNames are searched, in order, by FindFile.
var DefaultFileNames = []string{"outliner.toml", "outliner.yaml", "outliner.yml"}

// ReloadHandler receives the outcome of a file reload. On error the
// previous Settings stay in effect and s is the zero value.
type ReloadHandler func(s Settings, err error)

// Config holds the merged configuration.
type Config struct {
	mu sync.RWMutex

	data     map[string]any
	settings Settings

	file          string
	envPrefix     string
	fs            loader.FileSystem
	enableWatcher bool
	watcher       *watcher.Watcher
	handlers      []ReloadHandler
}

// Option configures a Config.
type Option func(*Config)

// WithFile sets the configuration file. Its extension picks the format.
func WithFile(path string) Option {
	return func(c *Config) {
		c.file = path
	}
}

// WithEnvPrefix changes the environment variable prefix. An empty prefix
// disables the environment layer.
func WithEnvPrefix(prefix string) Option {
	return func(c *Config) {
		c.envPrefix = prefix
	}
}

// WithWatcher reloads the file when it changes.
func WithWatcher(enable bool) Option {
	return func(c *Config) {
		c.enableWatcher = enable
	}
}

// WithFS reads files through fsys.
func WithFS(fsys loader.FileSystem) Option {
	return func(c *Config) {
		c.fs = fsys
	}
}

// New returns a Config holding the defaults. Call Load to read the file
// and environment.
func New(opts ...Option) *Config {
	c := &Config{
		envPrefix: loader.DefaultEnvPrefix,
		fs:        loader.DefaultFS(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.data = defaultConfig()
	c.settings, _ = decode(c.data)
	return c
}

// FindFile returns the first of DefaultFileNames present in dir, or "".
func FindFile(dir string) string {
	for _, name := range DefaultFileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads every layer. If watching is enabled the file watcher starts
// after a successful load.
func (c *Config) Load(_ context.Context) error {
	data, settings, err := c.read()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.data = data
	c.settings = settings
	startWatcher := c.enableWatcher && c.file != "" && c.watcher == nil
	c.mu.Unlock()

	if startWatcher {
		return c.startWatcher()
	}
	return nil
}

func (c *Config) read() (map[string]any, Settings, error) {
	data := defaultConfig()

	if c.file != "" {
		fl, err := loader.NewFileLoaderWithFS(c.fs, c.file)
		if err != nil {
			return nil, Settings{}, err
		}
		fileData, err := fl.Load()
		if err != nil {
			return nil, Settings{}, err
		}
		data = loader.DeepMerge(data, fileData)
	}

	if c.envPrefix != "" {
		envData, err := loader.NewEnvLoader(c.envPrefix).Load()
		if err != nil {
			return nil, Settings{}, err
		}
		data = loader.DeepMerge(data, envData)
	}

	settings, err := decode(data)
	if err != nil {
		return nil, Settings{}, err
	}
	return data, settings, nil
}

func (c *Config) startWatcher() error {
	w, err := watcher.New()
	if err != nil {
		return err
	}
	if err := w.Watch(c.file); err != nil {
		w.Close()
		return err
	}
	w.OnChange(func(watcher.Event) { c.Reload() })

	c.mu.Lock()
	c.watcher = w
	c.mu.Unlock()
	return nil
}

// Reload re-reads every layer and notifies the reload handlers. It
// returns the load error, if any.
func (c *Config) Reload() error {
	data, settings, err := c.read()

	c.mu.Lock()
	if err == nil {
		c.data = data
		c.settings = settings
	}
	handlers := append([]ReloadHandler(nil), c.handlers...)
	c.mu.Unlock()

	for _, h := range handlers {
		h(settings, err)
	}
	return err
}

// OnReload registers a handler called after each reload.
func (c *Config) OnReload(h ReloadHandler) {
	c.mu.Lock()
	c.handlers = append(c.handlers, h)
	c.mu.Unlock()
}

// Settings returns the current typed settings.
func (c *Config) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// Get returns the raw merged value at a dot-separated path.
func (c *Config) Get(path string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return loader.GetPath(c.data, path)
}

// File returns the configuration file path, if any.
func (c *Config) File() string {
	return c.file
}

// Close stops the file watcher.
func (c *Config) Close() error {
	c.mu.Lock()
	w := c.watcher
	c.watcher = nil
	c.mu.Unlock()
	if w != nil {
		return w.Close()
	}
	return nil
}

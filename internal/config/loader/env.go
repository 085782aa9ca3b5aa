package loader

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultEnvPrefix is the prefix of recognized environment variables.
const DefaultEnvPrefix = "OUTLINER_"

// EnvLoader folds prefixed environment variables into a configuration map.
//
// OUTLINER_HISTORY_MAX_ENTRIES=50 becomes history.maxEntries = 50: the first
// word names the section and the rest form a camelCase key. Explicit
// mappings take precedence over that rule.
type EnvLoader struct {
	prefix  string
	mapping map[string]string
	environ func() []string
}

// NewEnvLoader returns a loader for variables starting with prefix. The
// prefix includes the trailing underscore.
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: defaultEnvMapping(prefix),
		environ: os.Environ,
	}
}

// Shorthands for common settings. An empty path skips the variable.
func defaultEnvMapping(prefix string) map[string]string {
	return map[string]string{
		prefix + "NAMESPACE": "identity.namespace",
		prefix + "LOG_LEVEL": "logging.level",
		prefix + "DB":        "storage.path",
		prefix + "CONFIG":    "",
	}
}

// AddMapping maps envVar to a configuration path.
func (l *EnvLoader) AddMapping(envVar, path string) {
	l.mapping[envVar] = path
}

// Load reads the environment. Empty values are kept as empty strings.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)
	for _, kv := range l.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}
		path, mapped := l.mapping[name]
		if !mapped {
			path = l.envToPath(name)
		}
		if path == "" {
			continue
		}
		SetPath(config, path, ParseValue(value))
	}
	return config, nil
}

// envToPath converts OUTLINER_HISTORY_MAX_ENTRIES to history.maxEntries.
func (l *EnvLoader) envToPath(env string) string {
	parts := strings.Split(strings.TrimPrefix(env, l.prefix), "_")
	section := strings.ToLower(parts[0])
	if len(parts) == 1 {
		return section
	}
	key := strings.ToLower(parts[1])
	for _, p := range parts[2:] {
		if p != "" {
			key += strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
		}
	}
	return section + "." + key
}

// ParseValue converts an environment string to the most specific type it
// spells: bool, int64, float64, time.Duration, or string.
func ParseValue(s string) any {
	switch strings.ToLower(s) {
	case "":
		return s
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return s
}

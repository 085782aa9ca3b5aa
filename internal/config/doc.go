// Package config loads outliner settings.
//
// Settings come from three layers, later ones overriding earlier ones:
//
//	built-in defaults
//	a TOML or YAML file (outliner.toml, outliner.yaml)
//	OUTLINER_* environment variables
//
// Keys are camelCase within sections:
//
//	[identity]
//	namespace = "alice"
//
//	[history]
//	maxEntries = 500
//	coalesceWindow = "2s"
//
//	[logging]
//	level = "debug"
//
//	[storage]
//	backend = "sqlite"   # or "json"
//	path = "notes.db"
//	document = "main"
//
//	[sort]
//	script = "by-length.lua"
//	ignoreCase = true
//
// With WithWatcher the file is reloaded when it changes and OnReload
// handlers receive the new Settings. A file that fails to parse or
// validate leaves the previous Settings in place.
package config

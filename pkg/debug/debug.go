// Package debug provides category-based debug logging for the simpla backend.
//
// Two orthogonal controls:
//   - Categories (WHAT to debug): logging.debug in config or SIMPLA_DEBUG
//   - Levels (HOW MUCH detail): logging.level in config or SIMPLA_LOG_LEVEL
//
// A debug line is emitted only when its category is enabled and the logger
// accepts debug records.
//
// Usage:
//
//	debug.Log(ctx, logger, debug.Auth, "authentication failed", "path", r.URL.Path)
//	if debug.Enabled(debug.Storage) { /* expensive formatting */ }
//
// Categories: auth, storage, config, all. Levels: error, warn, info, debug, trace.
package debug

import (
	"context"
	"log/slog"
	"sort"
	"strings"
)

// Known categories.
const (
	Auth    = "auth"
	Storage = "storage"
	Config  = "config"
	All     = "all"
)

// LevelTrace is below slog.LevelDebug for maximum verbosity.
const LevelTrace = slog.LevelDebug - 4

// categories holds the set of enabled debug categories.
// Written by Configure at startup, read-only afterwards.
var categories = map[string]bool{}

// Configure enables the comma-separated categories in list, replacing any
// previous set. Call it before serving requests.
func Configure(list string) {
	categories = parseCategories(list)
}

// Enabled reports whether debug output is active for the given category.
func Enabled(category string) bool {
	return categories[All] || categories[category]
}

// Log emits a debug record for category on logger (slog.Default when nil).
// If the category is not enabled, this is a no-op.
func Log(ctx context.Context, logger *slog.Logger, category, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.DebugContext(ctx, msg, append([]any{"debug", category}, args...)...)
}

// ParseLevel converts a level name to a slog.Level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Categories returns the enabled categories in sorted order.
func Categories() []string {
	result := make([]string, 0, len(categories))
	for k := range categories {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for _, cat := range strings.Split(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			m[cat] = true
		}
	}
	return m
}

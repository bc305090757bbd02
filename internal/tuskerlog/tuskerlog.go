// Package tuskerlog provides the structured logger shared across tusker-core
// components, wrapping charmbracelet/log and styling its level badges with
// lipgloss the way bencoepp-bib's internal/logger package does for its own
// storage layer.
package tuskerlog

import (
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	mu      sync.Mutex
	current = New(Options{Writer: os.Stderr, Level: log.InfoLevel})
)

// Options configures a Logger.
type Options struct {
	Writer     io.Writer
	Level      log.Level
	Prefix     string
	ShowCaller bool
}

// New builds a standalone logger. Components should prefer accepting a
// *log.Logger parameter (falling back to Default()) over calling this
// directly, so callers can inject a silenced logger in tests.
func New(opts Options) *log.Logger {
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}
	l := log.NewWithOptions(opts.Writer, log.Options{
		ReportCaller:    opts.ShowCaller,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          opts.Prefix,
		Level:           opts.Level,
	})
	l.SetStyles(levelStyles())
	return l
}

// levelStyles colors each severity level the way bencoepp-bib's console
// handler does, minus the emoji — tusker-core's log lines feed a terminal a
// developer is watching, not a TUI.
func levelStyles() *log.Styles {
	styles := log.DefaultStyles()

	styles.Levels[log.DebugLevel] = lipgloss.NewStyle().
		SetString("DEBUG").
		Bold(true).
		Foreground(lipgloss.Color("63"))
	styles.Levels[log.InfoLevel] = lipgloss.NewStyle().
		SetString("INFO").
		Bold(true).
		Foreground(lipgloss.Color("42"))
	styles.Levels[log.WarnLevel] = lipgloss.NewStyle().
		SetString("WARN").
		Bold(true).
		Foreground(lipgloss.Color("214"))
	styles.Levels[log.ErrorLevel] = lipgloss.NewStyle().
		SetString("ERROR").
		Bold(true).
		Foreground(lipgloss.Color("196"))
	styles.Levels[log.FatalLevel] = lipgloss.NewStyle().
		SetString("FATAL").
		Bold(true).
		Background(lipgloss.Color("196")).
		Foreground(lipgloss.Color("231"))
	styles.Key = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	styles.Separator = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	return styles
}

// Default returns the process-wide logger. SetDefault replaces it, e.g. so
// cmd/tuskerctl can raise the level from a --verbose flag.
func Default() *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	return current
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *log.Logger) {
	mu.Lock()
	defer mu.Unlock()
	current = l
}

// Silent returns a logger that discards all output, for use in tests that
// want a real *log.Logger value without console noise.
func Silent() *log.Logger {
	return New(Options{Writer: io.Discard, Level: log.FatalLevel + 1})
}

// Named returns a child logger with the given prefix, used by components to
// tag their log lines (e.g. "connection", "migration").
func Named(name string) *log.Logger {
	return Default().WithPrefix(name)
}

package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const defaultBufferSize = 500

// Logger is satisfied by *slog.Logger. Packages that only log accept it
// instead of the concrete type.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config selects levels and output format.
type Config struct {
	Level      string            `toml:"level"`
	Format     string            `toml:"format"`
	Modules    map[string]string `toml:"modules"`
	BufferSize int               `toml:"buffer_size"`
}

type registry struct {
	mu        sync.RWMutex
	cfg       Config
	ready     bool
	output    io.Writer
	loggers   map[string]*slog.Logger
	levels    map[string]*slog.LevelVar
	global    slog.LevelVar
	buffer    *RingBuffer
	callback  LogCallback
	noJournal bool
}

var std = &registry{
	output:  os.Stderr,
	loggers: make(map[string]*slog.Logger),
	levels:  make(map[string]*slog.LevelVar),
}

// Initialize applies cfg to every existing and future module logger.
// Records go to stderr, the systemd journal when present, and the in-memory
// ring buffer served by the log stream endpoint. Stdout is left to the
// terminal display.
func Initialize(cfg Config) {
	std.mu.Lock()
	defer std.mu.Unlock()

	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	std.cfg = cfg
	std.ready = true
	std.buffer = NewRingBuffer(cfg.BufferSize)
	std.global.Set(levelOr(cfg.Level, slog.LevelInfo))

	// Loggers handed out before Initialize were built without the buffer and
	// journal handlers.
	for module, lv := range std.levels {
		lv.Set(std.moduleLevel(module))
		std.loggers[module] = slog.New(std.handler(lv)).With("module", module)
	}

	slog.SetDefault(slog.New(std.handler(&std.global)))
}

// SetOutput redirects the text/json handler. Loggers created afterwards use w.
func SetOutput(w io.Writer) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.output = w
}

// GetLogger returns the logger for module, creating it on first use.
func GetLogger(module string) *slog.Logger {
	std.mu.RLock()
	l, ok := std.loggers[module]
	std.mu.RUnlock()
	if ok {
		return l
	}

	std.mu.Lock()
	defer std.mu.Unlock()
	if l, ok := std.loggers[module]; ok {
		return l
	}

	lv := &slog.LevelVar{}
	lv.Set(std.moduleLevel(module))
	l = slog.New(std.handler(lv)).With("module", module)
	std.loggers[module] = l
	std.levels[module] = lv
	return l
}

// SetLevel changes one module's level at runtime. Unknown level names are
// ignored and reported as false.
func SetLevel(module, level string) bool {
	parsed, ok := parseLevel(level)
	if !ok {
		return false
	}
	GetLogger(module)

	std.mu.Lock()
	defer std.mu.Unlock()
	std.levels[module].Set(parsed)
	return true
}

// GetBuffer returns the log history, nil before Initialize.
func GetBuffer() *RingBuffer {
	std.mu.RLock()
	defer std.mu.RUnlock()
	return std.buffer
}

// SetLogCallback registers fn to receive every buffered entry.
func SetLogCallback(fn LogCallback) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.callback = fn
}

func (r *registry) moduleLevel(module string) slog.Level {
	if !r.ready {
		return slog.LevelInfo
	}
	level := levelOr(r.cfg.Level, slog.LevelInfo)
	if s, ok := r.cfg.Modules[module]; ok {
		level = levelOr(s, level)
	}
	return level
}

// handler builds the fan-out chain. Callers hold r.mu.
func (r *registry) handler(level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var out slog.Handler
	if r.cfg.Format == "json" {
		out = slog.NewJSONHandler(r.output, opts)
	} else {
		out = slog.NewTextHandler(r.output, opts)
	}
	if !r.ready {
		return out
	}

	handlers := []slog.Handler{out}
	if !r.noJournal && IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}
	handlers = append(handlers, NewBufferHandler(level))
	return NewMultiHandler(handlers...)
}

// sinks returns the buffer and callback for BufferHandler.
func (r *registry) sinks() (*RingBuffer, LogCallback) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.buffer, r.callback
}

func levelOr(s string, fallback slog.Level) slog.Level {
	if l, ok := parseLevel(s); ok {
		return l
	}
	return fallback
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}

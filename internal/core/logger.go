package core

import (
	"log"
	"strings"
	"sync"
)

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelOff
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelOff:
		return "off"
	default:
		return "unknown"
	}
}

// LogConfig holds logging configuration from YAML.
type LogConfig struct {
	Level      string            `yaml:"level,omitempty"`
	Components map[string]string `yaml:"components,omitempty"`
}

// Logger provides per-component log level filtering.
type Logger struct {
	mu          sync.RWMutex
	globalLevel LogLevel
	components  map[string]LogLevel // lowercase component name → level
}

// ParseLevel converts a string level name to LogLevel.
// Returns LevelInfo for unrecognized values.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "info", "":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "off", "none":
		return LevelOff
	default:
		return LevelInfo
	}
}

// NewLogger creates a Logger from config.
func NewLogger(cfg LogConfig) *Logger {
	l := &Logger{}
	l.Configure(cfg)
	return l
}

// Configure replaces the level table. Safe to call while other goroutines log.
func (l *Logger) Configure(cfg LogConfig) {
	components := make(map[string]LogLevel, len(cfg.Components))
	for name, level := range cfg.Components {
		components[strings.ToLower(name)] = ParseLevel(level)
	}
	l.mu.Lock()
	l.globalLevel = ParseLevel(cfg.Level)
	l.components = components
	l.mu.Unlock()
}

// Enabled reports whether a message at level would be emitted for tag.
func (l *Logger) Enabled(tag string, level LogLevel) bool {
	return level != LevelOff && l.levelFor(tag) <= level
}

func (l *Logger) levelFor(tag string) LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if lvl, ok := l.components[strings.ToLower(tag)]; ok {
		return lvl
	}
	return l.globalLevel
}

func (l *Logger) logf(level LogLevel, tag, format string, args ...any) {
	if l.Enabled(tag, level) {
		log.Printf("["+tag+"] "+format, args...)
	}
}

// Debugf logs at debug level.
func (l *Logger) Debugf(tag, format string, args ...any) { l.logf(LevelDebug, tag, format, args...) }

// Infof logs at info level.
func (l *Logger) Infof(tag, format string, args ...any) { l.logf(LevelInfo, tag, format, args...) }

// Warnf logs at warn level.
func (l *Logger) Warnf(tag, format string, args ...any) { l.logf(LevelWarn, tag, format, args...) }

// Errorf logs at error level.
func (l *Logger) Errorf(tag, format string, args ...any) { l.logf(LevelError, tag, format, args...) }

// Log is the global logger instance. Initialized with default (info level).
var Log = NewLogger(LogConfig{})

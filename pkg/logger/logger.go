// Package logger provides leveled, component-scoped logging for the arena binaries.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity threshold of a logger
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel maps DEBUG/INFO/WARN/ERROR (any case) to a LogLevel.
// Unknown names fall back to INFO and report ok=false.
func ParseLevel(s string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG, true
	case "INFO":
		return INFO, true
	case "WARN", "WARNING":
		return WARN, true
	case "ERROR":
		return ERROR, true
	default:
		return INFO, false
	}
}

// globalLevel is shared by every logger so SetGlobalLogLevel takes effect at once.
var globalLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// Logger is a named printf-style logger backed by zap.
type Logger struct {
	name  string
	mu    sync.Mutex
	sugar *zap.SugaredLogger
	file  *os.File
}

// Component loggers
var (
	Server = New("server")
	Game   = New("game")
	Client = New("client")
)

// New creates a logger writing to stderr under the given component name.
func New(name string) *Logger {
	l := &Logger{name: name}
	l.sugar = zap.New(consoleCore()).Named(name).Sugar()
	return l
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{name: "nop", sugar: zap.NewNop().Sugar()}
}

func consoleCore() zapcore.Core {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	if color.NoColor {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(os.Stderr), globalLevel)
}

func fileCore(f *os.File) zapcore.Core {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.AddSync(f), globalLevel)
}

// SetGlobalLogLevel changes the threshold of every logger.
func SetGlobalLogLevel(level LogLevel) {
	globalLevel.SetLevel(level.zapLevel())
}

// SetFile tees this logger's output into a JSON log file.
func (l *Logger) SetFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
	}
	l.file = f
	l.sugar = zap.New(zapcore.NewTee(consoleCore(), fileCore(f))).Named(l.name).Sugar()
	return nil
}

// InitializeFileLogging creates dir and points every component logger at dir/<component>.log.
func InitializeFileLogging(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	for _, l := range []*Logger{Server, Game, Client} {
		if err := l.SetFile(filepath.Join(dir, l.name+".log")); err != nil {
			return err
		}
	}
	return nil
}

// With returns a child logger carrying the given key/value pairs on every line.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Logger{name: l.name, sugar: l.sugar.With(keysAndValues...)}
}

func (l *Logger) logger() *zap.SugaredLogger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sugar
}

func (l *Logger) Debug(format string, args ...interface{}) { l.logger().Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.logger().Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.logger().Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.logger().Errorf(format, args...) }

// Fatal logs and terminates the process with exit code 1.
func (l *Logger) Fatal(format string, args ...interface{}) { l.logger().Fatalf(format, args...) }

// Sync flushes buffered output and closes the log file, if any. Later
// lines go to stderr only.
func (l *Logger) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.sugar.Sync()
	if l.file != nil {
		l.file.Close()
		l.file = nil
		l.sugar = zap.New(consoleCore()).Named(l.name).Sugar()
	}
	return err
}

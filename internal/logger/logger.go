// Package logger is the process-wide printf-style logger used by every
// promptforge package. Messages carry a bracketed component prefix such as
// "[PROMPT]" or "[AGENT]"; the backend is a zap console core whose level can
// be changed at runtime.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is a logging threshold.
type Level int8

const (
	TraceLevel Level = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case TraceLevel:
		return "trace"
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int8(l))
	}
}

var (
	mu      sync.RWMutex
	atom    = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	trace   atomic.Bool
	current Level = InfoLevel
	sugar         = newSugar(zapcore.Lock(os.Stderr))
	logFile *os.File
)

func newSugar(ws zapcore.WriteSyncer) *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encCfg.EncodeCaller = nil
	encCfg.CallerKey = ""
	encCfg.StacktraceKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), ws, atom)
	return zap.New(core).Sugar()
}

// ParseLevel converts a level name to a Level. fatal and panic are accepted
// and map to ErrorLevel.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return TraceLevel, nil
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error", "fatal", "panic":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level: %q", s)
	}
}

// SetLevel changes the active threshold.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	current = l
	trace.Store(l == TraceLevel)
	switch l {
	case TraceLevel, DebugLevel:
		atom.SetLevel(zapcore.DebugLevel)
	case InfoLevel:
		atom.SetLevel(zapcore.InfoLevel)
	case WarnLevel:
		atom.SetLevel(zapcore.WarnLevel)
	default:
		atom.SetLevel(zapcore.ErrorLevel)
	}
}

// GetLevel returns the active threshold.
func GetLevel() Level {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// SetOutput redirects all log output to the given writers.
func SetOutput(writers ...io.Writer) {
	syncers := make([]zapcore.WriteSyncer, 0, len(writers))
	for _, w := range writers {
		syncers = append(syncers, zapcore.AddSync(w))
	}
	ws := zapcore.NewMultiWriteSyncer(syncers...)

	mu.Lock()
	defer mu.Unlock()
	sugar = newSugar(zapcore.Lock(ws))
}

// OpenFile tees log output to stderr and the file at path.
func OpenFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	mu.Lock()
	prev := logFile
	logFile = f
	mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	SetOutput(os.Stderr, f)
	return nil
}

// Sync flushes buffered output and closes the log file, if any.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	_ = sugar.Sync()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Trace logs at trace level. Trace lines are emitted through the debug core.
func Trace(format string, args ...any) {
	if !trace.Load() {
		return
	}
	get().Debugf("[TRACE] "+format, args...)
}

func Debug(format string, args ...any) {
	get().Debugf(format, args...)
}

func Info(format string, args ...any) {
	get().Infof(format, args...)
}

func Warn(format string, args ...any) {
	get().Warnf(format, args...)
}

func Error(format string, args ...any) {
	get().Errorf(format, args...)
}

package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// Reduced buffer size - we only need the first line which is typically ~25 bytes.
	minStackBufSize = 32
	// Minimum expected stack trace length for valid goroutine info.
	minStackTraceLen = 12
	// Number of characters to skip: "goroutine " (10 chars).
	goroutinePrefixLen = 10

	logDirPerm  = 0750
	logFilePerm = 0640
	// Log files rotate by day: sanitier-19-10-2026.log.
	logFileDateFormat = "02-01-2006"
	logFilePrefix     = "sanitier-"
)

var (
	Logger        zerolog.Logger
	goroutinePool sync.Pool // Pool for reusing small stack buffers
	logFile       *os.File
)

// Options configures the process-wide logger.
type Options struct {
	Debug bool
	// Dir receives a dated JSON log file when set.
	Dir string
	// Console is the human-readable sink, os.Stderr when nil.
	Console io.Writer
	// Now names the log file, time.Now when nil.
	Now func() time.Time
}

func init() {
	goroutinePool.New = func() interface{} {
		return make([]byte, minStackBufSize)
	}

	Logger = newLogger(consoleWriter(os.Stderr), zerolog.InfoLevel)
	log.Logger = Logger
}

// getGoroutineIDOptimized extracts the goroutine ID with minimal stack walking.
func getGoroutineIDOptimized() string {
	bufInterface := goroutinePool.Get()
	buf, ok := bufInterface.([]byte)
	if !ok {
		return "unknown"
	}
	defer goroutinePool.Put(buf) //nolint:staticcheck // buf is a slice, this is the correct usage

	stackLen := runtime.Stack(buf, false)
	if stackLen < minStackTraceLen {
		return "unknown"
	}

	// Fast parse: "goroutine 123 [running]:".
	idx := goroutinePrefixLen
	if idx >= stackLen {
		return "unknown"
	}

	start := idx
	for idx < stackLen && buf[idx] >= '0' && buf[idx] <= '9' {
		idx++
	}

	if idx > start {
		return string(buf[start:idx])
	}
	return "unknown"
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
	}
}

func newLogger(out io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger().
		Hook(zerolog.HookFunc(func(e *zerolog.Event, level zerolog.Level, msg string) {
			e.Str("goid", getGoroutineIDOptimized())
		}))
}

// LogFileName returns the dated log file name for the given day.
func LogFileName(day time.Time) string {
	return logFilePrefix + day.Format(logFileDateFormat) + ".log"
}

// Setup rebuilds the global logger from opts and returns it.
// The console sink stays human-readable; the file sink gets JSON lines.
func Setup(opts Options) (zerolog.Logger, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}

	writers := []io.Writer{consoleWriter(console)}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, logDirPerm); err != nil {
			return Logger, fmt.Errorf("failed to create log directory %q: %w", opts.Dir, err)
		}
		path := filepath.Join(opts.Dir, LogFileName(now()))
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerm) //nolint:gosec // path built from config
		if err != nil {
			return Logger, fmt.Errorf("failed to open log file %q: %w", path, err)
		}
		Close()
		logFile = file
		writers = append(writers, file)
	}

	Logger = newLogger(zerolog.MultiLevelWriter(writers...), level)
	log.Logger = Logger
	return Logger, nil
}

// Close releases the log file opened by Setup, if any.
func Close() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// Info logs an info message with goroutine ID.
func Info() *zerolog.Event {
	return Logger.Info()
}

// Error logs an error message with goroutine ID.
func Error() *zerolog.Event {
	return Logger.Error()
}

// Warn logs a warning message with goroutine ID.
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Debug logs a debug message with goroutine ID.
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Fatal logs a fatal message with goroutine ID and exits.
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

// SetDebugMode switches the logger to debug level.
func SetDebugMode() {
	Logger = Logger.Level(zerolog.DebugLevel)
	log.Logger = Logger
}

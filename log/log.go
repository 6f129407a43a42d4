// Package log provides the process-wide structured logger. It wraps zerolog
// and exposes printf-style and key/value helpers for every level.
package log

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime/debug"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
	LogLevelFatal = "fatal"

	logTestWriterName = "test"
	logTestTime       = "00:00:00"
)

var (
	log      zerolog.Logger
	logLevel = LogLevelInfo
	logMu    sync.RWMutex

	// panicOnInvalidChars makes the logger panic when a message contains
	// invalid UTF-8. Enabled with LOG_PANIC_ON_INVALIDCHARS=true.
	panicOnInvalidChars = os.Getenv("LOG_PANIC_ON_INVALIDCHARS") == "true"

	// logTestWriter is used as output when Init is called with
	// logTestWriterName.
	logTestWriter io.Writer = os.Stdout
)

func init() {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = LogLevelError
	}
	Init(level, "stderr", nil)
}

// invalidCharChecker is a zerolog hook that flags messages with invalid
// UTF-8 sequences.
type invalidCharChecker struct{}

func (invalidCharChecker) Run(_ *zerolog.Event, _ zerolog.Level, msg string) {
	if !utf8.ValidString(msg) {
		if panicOnInvalidChars {
			panic(fmt.Sprintf("log message with invalid chars: %q", msg))
		}
	}
}

// errorLevelWriter only forwards error (and above) entries to the wrapped
// writer.
type errorLevelWriter struct {
	io.Writer
}

func (w *errorLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.WarnLevel {
		return len(p), nil
	}
	return w.Write(p)
}

// Init configures the logger with the given level and output. Output can be
// "stdout", "stderr", "test" or a file path. If errorOutput is not nil,
// warnings and errors are also copied to it.
func Init(level, output string, errorOutput io.Writer) {
	var out io.Writer
	switch output {
	case "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	case logTestWriterName:
		out = logTestWriter
	default:
		f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			panic(fmt.Sprintf("cannot create log output: %v", err))
		}
		out = f
	}
	cw := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339Nano,
		NoColor:    output != "stdout" && output != "stderr",
	}
	if output == logTestWriterName {
		cw.TimeFormat = logTestTime
		cw.FormatTimestamp = func(any) string { return logTestTime }
	}
	var w io.Writer = cw
	if errorOutput != nil {
		w = zerolog.MultiLevelWriter(cw, &errorLevelWriter{zerolog.ConsoleWriter{
			Out:        errorOutput,
			TimeFormat: time.RFC3339Nano,
			NoColor:    true,
		}})
	}

	zerolog.CallerMarshalFunc = func(_ uintptr, file string, line int) string {
		return fmt.Sprintf("%s/%s:%d", path.Base(path.Dir(file)), path.Base(file), line)
	}

	logMu.Lock()
	defer logMu.Unlock()
	log = zerolog.New(w).With().Timestamp().CallerWithSkipFrameCount(3).Logger().Hook(invalidCharChecker{})
	setLevel(level)
}

func setLevel(level string) {
	switch level {
	case LogLevelDebug:
		log = log.Level(zerolog.DebugLevel)
	case LogLevelInfo:
		log = log.Level(zerolog.InfoLevel)
	case LogLevelWarn:
		log = log.Level(zerolog.WarnLevel)
	case LogLevelError:
		log = log.Level(zerolog.ErrorLevel)
	case LogLevelFatal:
		log = log.Level(zerolog.FatalLevel)
	default:
		panic(fmt.Sprintf("invalid log level: %q", level))
	}
	logLevel = level
}

// Level returns the current log level.
func Level() string {
	logMu.RLock()
	defer logMu.RUnlock()
	return logLevel
}

// Logger returns the underlying zerolog logger.
func Logger() *zerolog.Logger {
	return current()
}

func current() *zerolog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	l := log
	return &l
}

func Debug(args ...any) { current().Debug().Msg(fmt.Sprint(args...)) }
func Info(args ...any)  { current().Info().Msg(fmt.Sprint(args...)) }
func Warn(args ...any)  { current().Warn().Msg(fmt.Sprint(args...)) }

// Error logs the error at error level. Nil errors are ignored.
func Error(args ...any) {
	if len(args) == 1 && args[0] == nil {
		return
	}
	current().Error().Msg(fmt.Sprint(args...))
}

// Fatal logs at fatal level, prints the stack trace and exits.
func Fatal(args ...any) {
	current().Fatal().Msg(fmt.Sprint(args...) + "\n" + string(debug.Stack()))
}

func Debugf(template string, args ...any) { current().Debug().Msgf(template, args...) }
func Infof(template string, args ...any)  { current().Info().Msgf(template, args...) }
func Warnf(template string, args ...any)  { current().Warn().Msgf(template, args...) }
func Errorf(template string, args ...any) { current().Error().Msgf(template, args...) }
func Fatalf(template string, args ...any) {
	current().Fatal().Msg(fmt.Sprintf(template, args...) + "\n" + string(debug.Stack()))
}

// Debugw logs a message with key/value pairs at debug level.
func Debugw(msg string, keyvalues ...any) { current().Debug().Fields(keyvalues).Msg(msg) }

// Infow logs a message with key/value pairs at info level.
func Infow(msg string, keyvalues ...any) { current().Info().Fields(keyvalues).Msg(msg) }

// Warnw logs a message with key/value pairs at warn level.
func Warnw(msg string, keyvalues ...any) { current().Warn().Fields(keyvalues).Msg(msg) }

// Errorw logs the error together with a message and key/value pairs.
func Errorw(err error, msg string, keyvalues ...any) {
	current().Error().Err(err).Fields(keyvalues).Msg(msg)
}

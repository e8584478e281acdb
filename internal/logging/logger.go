package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const (
	Critical = 50
	Fatal    = Critical
	Error    = 40
	Warning  = 30
	Info     = 20
	Debug    = 10
	NotSet   = 0
)

var (
	LogLevel      int = Warning
	logLevelMutex sync.RWMutex

	base = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

func init() {
	localEnv := os.Getenv("LOCAL")
	if strings.ToLower(localEnv) == "true" || localEnv == "1" {
		SetLogLevel(Debug)
		SetOutput(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// Configure applies a textual level ("debug", "info", ...) and output format
// ("json" or "console"). Unknown levels leave the current level in place.
func Configure(level, format string) {
	if lvl, ok := ParseLevel(level); ok {
		SetLogLevel(lvl)
	}
	if strings.EqualFold(format, "console") {
		SetOutput(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// ParseLevel maps a level name onto the numeric levels above.
func ParseLevel(name string) (int, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return Debug, true
	case "info":
		return Info, true
	case "warn", "warning":
		return Warning, true
	case "error":
		return Error, true
	case "critical", "fatal":
		return Critical, true
	}
	return NotSet, false
}

func SetLogLevel(level int) {
	logLevelMutex.Lock()
	defer logLevelMutex.Unlock()
	LogLevel = level
}

// SetOutput redirects all log output. Tests use it to capture lines.
func SetOutput(w io.Writer) {
	logLevelMutex.Lock()
	defer logLevelMutex.Unlock()
	base = zerolog.New(w).With().Timestamp().Logger()
}

func enabled(level int) (zerolog.Logger, bool) {
	logLevelMutex.RLock()
	defer logLevelMutex.RUnlock()
	return base, LogLevel <= level
}

func Debugf(format string, v ...interface{}) {
	if l, ok := enabled(Debug); ok {
		l.Debug().Msg(fmt.Sprintf(format, v...))
	}
}

func Infof(format string, v ...interface{}) {
	if l, ok := enabled(Info); ok {
		l.Info().Msg(fmt.Sprintf(format, v...))
	}
}

func Warningf(format string, v ...interface{}) {
	if l, ok := enabled(Warning); ok {
		l.Warn().Msg(fmt.Sprintf(format, v...))
	}
}

func Errorf(format string, v ...interface{}) {
	if l, ok := enabled(Error); ok {
		l.Error().Msg(fmt.Sprintf(format, v...))
	}
}

func Criticalf(format string, v ...interface{}) {
	if l, ok := enabled(Critical); ok {
		l.WithLevel(zerolog.FatalLevel).Msg(fmt.Sprintf(format, v...))
	}
}

func Fatalf(format string, v ...interface{}) {
	l, _ := enabled(Fatal)
	l.Fatal().Msg(fmt.Sprintf(format, v...))
}

// Logger is a component-scoped logger taking key/value pairs.
type Logger struct {
	component string
}

// With returns a logger that tags every line with the given component.
func With(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	if zl, ok := enabled(Debug); ok {
		l.write(zl.Debug(), msg, keyvals)
	}
}

func (l *Logger) Info(msg string, keyvals ...interface{}) {
	if zl, ok := enabled(Info); ok {
		l.write(zl.Info(), msg, keyvals)
	}
}

func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	if zl, ok := enabled(Warning); ok {
		l.write(zl.Warn(), msg, keyvals)
	}
}

func (l *Logger) Error(msg string, keyvals ...interface{}) {
	if zl, ok := enabled(Error); ok {
		l.write(zl.Error(), msg, keyvals)
	}
}

func (l *Logger) write(ev *zerolog.Event, msg string, keyvals []interface{}) {
	ev = ev.Str("component", l.component)
	for i := 0; i+1 < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		switch v := keyvals[i+1].(type) {
		case error:
			ev = ev.AnErr(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	ev.Msg(msg)
}

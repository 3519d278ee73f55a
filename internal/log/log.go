package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

var (
	logger     *logrus.Logger
	loggerOnce sync.Once
	mu         sync.Mutex
	rotated    *lumberjack.Logger
)

// initLogger initializes the global logger to write to stderr with timestamps.
func initLogger() {
	loggerOnce.Do(func() {
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02T15:04:05.000000Z07:00",
		})
		logger.SetLevel(logrus.InfoLevel)
	})
}

// ParseLevel accepts debug, info or error in any case.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "", "INFO":
		return LevelInfo, nil
	case "ERROR":
		return LevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

func SetLevel(l Level) {
	initLogger()
	switch l {
	case LevelDebug:
		logger.SetLevel(logrus.DebugLevel)
	case LevelError:
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}
}

// SetOutput redirects log lines. Tests use it to capture output.
func SetOutput(w io.Writer) {
	initLogger()
	logger.SetOutput(w)
}

// SetFile tees log output into a size-rotated file in addition to stderr.
// An empty path disables the file sink.
func SetFile(path string) {
	initLogger()
	mu.Lock()
	defer mu.Unlock()

	if rotated != nil {
		_ = rotated.Close()
		rotated = nil
	}
	if path == "" {
		logger.SetOutput(os.Stderr)
		return
	}
	rotated = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	logger.SetOutput(io.MultiWriter(os.Stderr, rotated))
}

// Close flushes and closes the file sink, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if rotated == nil {
		return nil
	}
	err := rotated.Close()
	rotated = nil
	return err
}

func Debug(msg string, kv ...any) {
	logWithLevel(logrus.DebugLevel, msg, kv...)
}

func Info(msg string, kv ...any) {
	logWithLevel(logrus.InfoLevel, msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	logWithLevel(logrus.ErrorLevel, msg, extended...)
}

func logWithLevel(level logrus.Level, msg string, kv ...any) {
	initLogger()
	if !logger.IsLevelEnabled(level) {
		return
	}
	logger.WithFields(fields(kv...)).Log(level, msg)
}

func fields(kv ...any) logrus.Fields {
	out := make(logrus.Fields, len(kv)/2)
	// Expect kv as pairs: key, value, key, value, ...
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		out[key] = kv[i+1]
	}
	// If odd number of args, last one is ignored.
	return out
}

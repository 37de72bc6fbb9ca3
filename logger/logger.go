package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	// Logger carries debug and warning output
	Logger *logrus.Logger
	// InfoLogger carries informational output
	InfoLogger *logrus.Logger
	// ErrorLogger carries errors
	ErrorLogger *logrus.Logger
)

// LogConfig selects log files and the level. Empty paths log to stderr only.
type LogConfig struct {
	ErrorLogPath string
	InfoLogPath  string
	LogLevel     string
}

// CustomFormatter renders "[time] [LEVL] (file:func:line) message".
type CustomFormatter struct {
	TimestampFormat string
}

// Format implements logrus.Formatter.
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.Format(f.TimestampFormat)

	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}

	logMsg := fmt.Sprintf("[%s] [%s] (%s) %s\n",
		timestamp,
		level,
		getCaller(),
		entry.Message)

	return []byte(logMsg), nil
}

// getCaller walks past logrus and this package to the code that logged.
func getCaller() string {
	for i := 2; i < 20; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if strings.Contains(file, "sirupsen/logrus") ||
			strings.HasSuffix(file, "/logger/logger.go") {
			continue
		}

		funcName := runtime.FuncForPC(pc).Name()
		if idx := strings.LastIndex(funcName, "/"); idx >= 0 {
			funcName = funcName[idx+1:]
		}
		return fmt.Sprintf("%s:%s:%d", filepath.Base(file), funcName, line)
	}

	return "unknown:unknown:0"
}

// parseLogLevel falls back to info for unknown names.
func parseLogLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

// InitLogger builds the three loggers. A log file that cannot be opened is
// reported and replaced by stderr.
func InitLogger(config LogConfig) error {
	formatter := &CustomFormatter{
		TimestampFormat: "15:04:05 MST 2006/01/02",
	}
	level := parseLogLevel(config.LogLevel)

	newLogger := func(path string) (*logrus.Logger, error) {
		l := logrus.New()
		l.SetFormatter(formatter)
		l.SetLevel(level)
		l.SetOutput(os.Stderr)
		if path == "" {
			return l, nil
		}
		f, err := openLogFile(path)
		if err != nil {
			return l, err
		}
		l.SetOutput(io.MultiWriter(os.Stderr, f))
		return l, nil
	}

	var firstErr error
	var err error
	InfoLogger, err = newLogger(config.InfoLogPath)
	if err != nil {
		InfoLogger.Warnf("failed to open info log file %s, fallback to stderr: %v", config.InfoLogPath, err)
		firstErr = err
	}
	ErrorLogger, err = newLogger(config.ErrorLogPath)
	if err != nil {
		ErrorLogger.Warnf("failed to open error log file %s, fallback to stderr: %v", config.ErrorLogPath, err)
		if firstErr == nil {
			firstErr = err
		}
	}

	Logger = logrus.New()
	Logger.SetFormatter(formatter)
	Logger.SetLevel(level)
	Logger.SetOutput(InfoLogger.Out)

	return firstErr
}

// SetOutput redirects every logger to w, mostly for tests.
func SetOutput(w io.Writer) {
	for _, l := range []*logrus.Logger{Logger, InfoLogger, ErrorLogger} {
		if l != nil {
			l.SetOutput(w)
		}
	}
}

func openLogFile(logPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
}

// The package functions below are no-ops until InitLogger has run.

func Info(args ...interface{}) {
	if InfoLogger != nil {
		InfoLogger.Info(args...)
	}
}

func Infof(format string, args ...interface{}) {
	if InfoLogger != nil {
		InfoLogger.Infof(format, args...)
	}
}

func Debug(args ...interface{}) {
	if Logger != nil {
		Logger.Debug(args...)
	}
}

func Debugf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Debugf(format, args...)
	}
}

func Warn(args ...interface{}) {
	if Logger != nil {
		Logger.Warn(args...)
	}
}

func Warnf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Warnf(format, args...)
	}
}

func Error(args ...interface{}) {
	if ErrorLogger != nil {
		ErrorLogger.Error(args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if ErrorLogger != nil {
		ErrorLogger.Errorf(format, args...)
	}
}

// Fatalf logs and exits with status 1. Before InitLogger it writes to stderr.
func Fatalf(format string, args ...interface{}) {
	if ErrorLogger != nil {
		ErrorLogger.Fatalf(format, args...)
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

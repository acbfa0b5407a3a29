package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Log levels in increasing severity.
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	globalLogger *log.Logger
	logFile      *os.File
	minLevel     = LevelDebug
	mu           sync.Mutex
)

// Init initializes the global logger with the specified log file path.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	// Close previous log file if exists
	if logFile != nil {
		logFile.Close()
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	logFile = f
	globalLogger = log.New(f, "", log.Ltime|log.Lmicroseconds)

	return nil
}

// SetLevel sets the minimum level that will be written. Accepts
// "debug", "info", "warn" or "error"; anything else means debug.
func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(level) {
	case "info":
		minLevel = LevelInfo
	case "warn", "warning":
		minLevel = LevelWarn
	case "error":
		minLevel = LevelError
	default:
		minLevel = LevelDebug
	}
}

// Close closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

func write(level int, tag, format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if globalLogger != nil && level >= minLevel {
		globalLogger.Printf(tag+format, v...)
	}
}

// Info logs an info message.
func Info(format string, v ...interface{}) {
	write(LevelInfo, "[INFO] ", format, v...)
}

// Debug logs a debug message.
func Debug(format string, v ...interface{}) {
	write(LevelDebug, "[DEBUG] ", format, v...)
}

// Error logs an error message.
func Error(format string, v ...interface{}) {
	write(LevelError, "[ERROR] ", format, v...)
}

// Warn logs a warning message.
func Warn(format string, v ...interface{}) {
	write(LevelWarn, "[WARN] ", format, v...)
}

// GetWriter returns the underlying writer for use by drivers.
func GetWriter() io.Writer {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		return logFile
	}
	return io.Discard
}

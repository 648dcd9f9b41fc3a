// Package logger provides the process-wide run log for sapwiz.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

var (
	globalLogger *log.Logger
	logFile      *os.File
	verbose      bool
	mu           sync.Mutex
)

// Init opens logPath and directs all subsequent log output to it.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	// A rerun within the same process replaces the destination
	if logFile != nil {
		logFile.Close()
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	logFile = f
	globalLogger = log.New(writer(), "", log.Ltime|log.Lmicroseconds)

	return nil
}

// SetVerbose mirrors log output to stderr in addition to the log file.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()

	verbose = v
	if logFile != nil {
		globalLogger = log.New(writer(), "", log.Ltime|log.Lmicroseconds)
	}
}

// writer composes the log destination. Callers hold mu.
func writer() io.Writer {
	if logFile == nil {
		return io.Discard
	}
	if verbose {
		return io.MultiWriter(logFile, os.Stderr)
	}
	return logFile
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

func logf(level, format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if globalLogger != nil {
		globalLogger.Printf(level+" "+format, v...)
	}
}

// Info logs an info message.
func Info(format string, v ...interface{}) { logf("[INFO]", format, v...) }

// Debug logs a debug message.
func Debug(format string, v ...interface{}) { logf("[DEBUG]", format, v...) }

// Warn logs a warning message.
func Warn(format string, v ...interface{}) { logf("[WARN]", format, v...) }

// Error logs an error message.
func Error(format string, v ...interface{}) { logf("[ERROR]", format, v...) }

// GetWriter returns the underlying writer for subprocess output.
func GetWriter() io.Writer {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		return logFile
	}
	return io.Discard
}

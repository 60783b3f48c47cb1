// Package logging provides unified logging infrastructure for SOVDScope.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger wraps the standard logger with file output.
type Logger struct {
	*log.Logger
	file *os.File
	mu   sync.Mutex
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Initialize sets up the logging system with file output in addition to stdout.
func Initialize(logDir string) error {
	var initErr error
	once.Do(func() {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
			return
		}

		logPath := filepath.Join(logDir, "sovdscope.log")
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			initErr = fmt.Errorf("failed to open log file: %w", err)
			return
		}

		multiWriter := io.MultiWriter(os.Stdout, file)

		defaultLogger = &Logger{
			Logger: log.New(multiWriter, "", log.LstdFlags|log.Lshortfile),
			file:   file,
		}

		log.SetOutput(multiWriter)
		log.SetFlags(log.LstdFlags | log.Lshortfile)

		log.Printf("Logging initialized: %s", logPath)
	})
	return initErr
}

// Close closes the log file.
func Close() error {
	if defaultLogger != nil && defaultLogger.file != nil {
		return defaultLogger.file.Close()
	}
	return nil
}

func output(msg string) {
	if defaultLogger != nil {
		defaultLogger.Println(msg)
	} else {
		log.Println(msg)
	}
}

// Printf logs a formatted message.
func Printf(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Printf(format, v...)
	} else {
		log.Printf(format, v...)
	}
}

// Error logs an error message.
func Error(format string, v ...interface{}) {
	output(fmt.Sprintf("[ERROR] "+format, v...))
}

// Warning logs a warning message.
func Warning(format string, v ...interface{}) {
	output(fmt.Sprintf("[WARN] "+format, v...))
}

// Info logs an info message.
func Info(format string, v ...interface{}) {
	output(fmt.Sprintf("[INFO] "+format, v...))
}

// Debug logs a debug message (only when DEBUG=true).
func Debug(format string, v ...interface{}) {
	if os.Getenv("DEBUG") == "true" {
		output(fmt.Sprintf("[DEBUG] "+format, v...))
	}
}

// Fatalf logs an error message and exits the process.
func Fatalf(format string, v ...interface{}) {
	output(fmt.Sprintf("[FATAL] "+format, v...))
	os.Exit(1)
}

// RotateLogs renames the current log file with a timestamp and starts a new one.
func RotateLogs(logDir string) error {
	if defaultLogger == nil {
		return fmt.Errorf("logger not initialized")
	}

	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()

	if err := defaultLogger.file.Close(); err != nil {
		return fmt.Errorf("failed to close current log file: %w", err)
	}

	oldPath := filepath.Join(logDir, "sovdscope.log")
	newPath := filepath.Join(logDir, fmt.Sprintf("sovdscope-%s.log", time.Now().Format("20060102-150405")))
	if err := os.Rename(oldPath, newPath); err != nil {
		// If rename fails, try to reopen the original file
		defaultLogger.file, _ = os.OpenFile(oldPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	file, err := os.OpenFile(oldPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open new log file: %w", err)
	}
	defaultLogger.file = file

	multiWriter := io.MultiWriter(os.Stdout, file)
	defaultLogger.Logger.SetOutput(multiWriter)
	log.SetOutput(multiWriter)

	log.Printf("Log rotation completed: %s", newPath)
	return nil
}

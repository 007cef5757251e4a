package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

func init() {
	// Silence the default charmbracelet/log logger
	// All logging should go through our custom logger instance
	log.SetLevel(log.FatalLevel)
}

var (
	// Log is the global logger instance
	Log = log.New(io.Discard)

	// logFile is the file handle for the log file
	logFile *os.File
)

// Init initializes the logger with the given verbosity level
// When verbose is false, logs go to file only
// When verbose is true, logs go to both file and stderr
func Init(verbose bool) error {
	logPath := GetLogPath()

	var output io.Writer = os.Stderr
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err == nil {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			logFile = f
			if verbose {
				output = io.MultiWriter(logFile, os.Stderr)
			} else {
				output = logFile
			}
		}
	}

	Log = log.NewWithOptions(output, log.Options{
		ReportTimestamp: true,
		Prefix:          "plexaddons",
	})

	switch {
	case verbose:
		Log.SetLevel(log.DebugLevel)
	case logFile == nil:
		// stderr only: keep routine messages off the terminal
		Log.SetLevel(log.WarnLevel)
	default:
		Log.SetLevel(log.InfoLevel)
	}

	return nil
}

// Close closes the log file
func Close() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// GetLogPath returns the path to the log file
func GetLogPath() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		homeDir, _ := os.UserHomeDir()
		cacheDir = filepath.Join(homeDir, ".cache")
	}
	return filepath.Join(cacheDir, "plexaddons", "plexaddons.log")
}

// Convenience functions that use the global logger

func Debug(msg interface{}, keyvals ...interface{}) {
	Log.Debug(msg, keyvals...)
}

func Info(msg interface{}, keyvals ...interface{}) {
	Log.Info(msg, keyvals...)
}

func Warn(msg interface{}, keyvals ...interface{}) {
	Log.Warn(msg, keyvals...)
}

func Error(msg interface{}, keyvals ...interface{}) {
	Log.Error(msg, keyvals...)
}

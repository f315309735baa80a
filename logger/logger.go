package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	config "github.com/anjiri1684/agency_messaging/configs"
	"gopkg.in/natefinch/lumberjack.v2"
)

var output io.Writer = os.Stdout

func createLogFilePath(logDir, prefix string) string {
	currentDate := time.Now().Format("2006-01-02")
	return filepath.Join(logDir, fmt.Sprintf("%s-%s.log", prefix, currentDate))
}

func createRotatingLogger(logFilePath string, cfg config.LoggerConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    cfg.Rotation.MaxSize,
		MaxBackups: cfg.Rotation.MaxBackups,
		MaxAge:     cfg.Rotation.MaxAge,
		Compress:   cfg.Rotation.Compress,
	}
}

// Setup sends the standard logger to stdout and a rotating log file.
func Setup(cfg config.LoggerConfig) error {
	if err := os.MkdirAll(cfg.Directory, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logFilePath := createLogFilePath(cfg.Directory, cfg.Prefix)
	output = io.MultiWriter(os.Stdout, createRotatingLogger(logFilePath, cfg))

	log.SetOutput(output)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	log.Printf("Logging initialized: writing to %s", logFilePath)
	return nil
}

// Writer returns the writer configured by Setup, stdout before that.
// The HTTP access log and the SQL logger share it.
func Writer() io.Writer {
	return output
}

// New returns a logger with its own prefix writing to the shared output.
func New(prefix string) *log.Logger {
	return log.New(output, prefix, log.Ldate|log.Ltime|log.Lmsgprefix)
}

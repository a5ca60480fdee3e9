package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls log file output and rotation
type Config struct {
	// Directory for log files
	LogDir string
	// Log file name (e.g. gateway.log)
	LogFile string
	// Max size of a single log file (MB) before rotation
	MaxSize int
	// Max number of rotated files to keep
	MaxBackups int
	// Max days to keep rotated files
	MaxAge int
	// Whether rotated files are gzip-compressed
	Compress bool
	// Whether to also write to stdout
	Console bool
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() *Config {
	return &Config{
		LogDir:     "logs",
		LogFile:    "gateway.log",
		MaxSize:    100, // 100MB
		MaxBackups: 10,
		MaxAge:     30, // 30 days
		Compress:   true,
		Console:    true,
	}
}

// Setup initializes the logging system. The stdlib logger is pointed at a
// size-rotated file (lumberjack), optionally mirrored to the console.
func Setup(cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(cfg.LogDir, cfg.LogFile)
	rotator := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	var writer io.Writer
	if cfg.Console {
		writer = io.MultiWriter(os.Stdout, rotator)
	} else {
		writer = rotator
	}

	log.SetOutput(writer)
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	log.Printf("📝 Logging initialized")
	log.Printf("📂 Log file: %s", logPath)
	log.Printf("📊 Rotation: %dMB per file, keep %d backups, %d days", cfg.MaxSize, cfg.MaxBackups, cfg.MaxAge)

	return nil
}

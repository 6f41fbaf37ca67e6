package showdrive

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/encore/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "show_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the show driver.
func ShowHelp() {
	os.Stdout.WriteString(`Encore Show Driver
==================

Drives a full show against a running coordinator: connects the director,
scoreboard, and judge clients, starts a session, answers performance and
scoring prompts, and verifies the broadcast sequence.

Usage:
  go run cmd/showctl/main.go [options]

Options:
  -url string
        Base URL of the coordinator (default "http://localhost:9080")
  -session int
        Session id to start and drive (default 1)
  -judges string
        Comma-separated judge ids to connect (default "1,2,3")
  -perform-delay duration
        Simulated performance length (default 500ms)
  -score-delay duration
        Simulated judge deliberation time (default 200ms)
  -timeout duration
        HTTP request timeout (default 30s)
  -run-timeout duration
        Overall deadline for the show (default 10m)
  -log string
        Log file for driver output (default: show_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Drive session 1 with defaults
  go run cmd/showctl/main.go

  # Drive session 7 with five judges and slower pacing
  go run cmd/showctl/main.go -session 7 -judges 1,2,3,4,5 -perform-delay 2s
`)
}

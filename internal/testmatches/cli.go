package testmatches

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/LuSo58/billboards-evaluation/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging sends log output to both the console and a file. If logFile is
// empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if logFile == "" {
		logFile = "test_log_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.InitWithWriter(io.MultiWriter(os.Stdout, file)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the match test tool.
func ShowHelp() {
	os.Stdout.WriteString(`Billboards Match Test Tool
==========================

Generates random matches, submits them to a running evaluation service and
checks the resulting standings against local scoring.

Usage:
  go run cmd/test-matches/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -matches int
        Number of matches to generate and submit (default 1000)
  -zones int
        Maximum zones per match (default 8)
  -teams int
        Number of distinct teams (default 20)
  -seed int
        Generator seed (default: current time)
  -top int
        Number of top entries to fetch from leaderboard (default 20)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for generated submissions (default: generated_matches_TIMESTAMP.json)
  -log string
        Log file for test output (default: test_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run cmd/test-matches/main.go

  # Reproducible run against another port
  go run cmd/test-matches/main.go -seed 42 -matches 5000 -url http://localhost:8080
`)
}

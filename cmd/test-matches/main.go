package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/LuSo58/billboards-evaluation/internal/testmatches"
)

// Default configuration constants.
const (
	defaultNumMatches  = 1000
	defaultZones       = 8
	defaultTeams       = 20
	defaultTopN        = 20
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numMatches = flag.Int("matches", defaultNumMatches, "Number of matches to generate and submit")
		zones      = flag.Int("zones", defaultZones, "Maximum zones per match")
		teams      = flag.Int("teams", defaultTeams, "Number of distinct teams")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "Generator seed")
		topN       = flag.Int("top", defaultTopN, "Number of top entries to fetch from leaderboard")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for generated submissions (default: generated_matches_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for test output (default: test_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testmatches.ShowHelp()
		return
	}

	if err := testmatches.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &testmatches.Config{
		BaseURL:       *baseURL,
		NumMatches:    *numMatches,
		ZonesPerMatch: *zones,
		NumTeams:      *teams,
		Seed:          *seed,
		TopN:          *topN,
		Workers:       *workers,
		Timeout:       *timeout,
		OutputFile:    *outputFile,
		LogFile:       *logFile,
		Verbose:       *verbose,
	}

	if err := testmatches.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}

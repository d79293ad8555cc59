package testmatches

import (
	"time"

	"github.com/LuSo58/billboards-evaluation/internal/domain/model"
	"github.com/LuSo58/billboards-evaluation/internal/domain/types"
)

// Config holds configuration for the match test
type Config struct {
	BaseURL       string        // Base URL of the service
	NumMatches    int           // Number of matches to generate
	ZonesPerMatch int           // Upper bound on zones per match
	NumTeams      int           // Number of distinct teams
	Seed          int64         // Generator seed
	TopN          int           // Number of top entries to fetch
	Workers       int           // Number of concurrent workers
	Timeout       time.Duration // HTTP request timeout
	OutputFile    string        // Output file for submissions
	LogFile       string        // Log file for test output
	Verbose       bool          // Enable verbose logging
}

// Match pairs a submission with the board it was rendered from, so expected
// scores can be computed locally.
type Match struct {
	Submission types.Submission
	Board      model.Board
	Window     model.MatchWindow
}

// Stats holds test statistics
type Stats struct {
	MatchesGenerated   int
	MatchesSubmitted   int
	MatchesAccepted    int
	MatchesDuplicate   int
	MatchesFailed      int
	MatchesScored      int
	MatchesRejected    int
	RankingsRetrieved  int
	LeaderboardEntries int
	Mismatches         int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}

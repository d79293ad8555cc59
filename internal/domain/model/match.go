package model

import "time"

// MatchStatus is the lifecycle state of a submitted match.
type MatchStatus string

// Match statuses.
const (
	StatusPending MatchStatus = "pending"
	StatusScored  MatchStatus = "scored"
	StatusFailed  MatchStatus = "failed"
)

// Match is a parsed submission waiting to be scored.
type Match struct {
	ID           string
	SubmissionID string
	Board        Board
	Window       MatchWindow
	ReceivedAt   time.Time
}

// MatchResult is the stored outcome of a match.
type MatchResult struct {
	MatchID      string
	SubmissionID string
	Status       MatchStatus
	End          time.Time
	Zones        int
	Scores       ScoreTable
	Error        string
	ReceivedAt   time.Time
	EvaluatedAt  time.Time
}

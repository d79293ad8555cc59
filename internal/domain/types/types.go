// Package types contains the wire types shared by the HTTP and Kafka adapters.
package types

// Submission is the wire form of a match: an ID used for deduplication, the
// match end as a time of day and the raw zone logs.
type Submission struct {
	ID    string           `json:"submission_id"`
	End   string           `json:"end"`
	Zones []ZoneSubmission `json:"zones"`
}

// ZoneSubmission carries one zone's size and its newline separated log.
type ZoneSubmission struct {
	Size uint64 `json:"size"`
	Log  string `json:"log"`
}

// Entry represents a standings entry.
type Entry struct {
	Rank  int    `json:"rank"`
	Team  string `json:"team"`
	Score uint64 `json:"score"`
}

// EvaluateResponse is returned by synchronous evaluation.
type EvaluateResponse struct {
	Scores map[string]uint64 `json:"scores"`
	Total  uint64            `json:"total"`
}

// MatchView is the public representation of a stored match result.
type MatchView struct {
	MatchID      string            `json:"match_id"`
	SubmissionID string            `json:"submission_id"`
	Status       string            `json:"status"`
	End          string            `json:"end"`
	Zones        int               `json:"zones"`
	Scores       map[string]uint64 `json:"scores,omitempty"`
	Error        string            `json:"error,omitempty"`
	ReceivedAt   string            `json:"received_at"`
	EvaluatedAt  string            `json:"evaluated_at,omitempty"`
}

// Ack acknowledges an asynchronous submission.
type Ack struct {
	Status  string `json:"status"`
	MatchID string `json:"match_id,omitempty"`
}

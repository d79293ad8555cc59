// Package model contains domain models passed between layers.
package model

import "time"

// Event records that Team took control of the owning zone at Time.
// Time is a time-of-day: only the clock fields are meaningful.
type Event struct {
	Time time.Time
	Team string
}

// NewEvent builds an Event.
func NewEvent(at time.Time, team string) Event {
	return Event{Time: at, Team: team}
}

// TimeOfDay returns the given wall-clock time on the zero date in UTC, the same
// representation the log parser produces.
func TimeOfDay(hour, minute, second int) time.Time {
	return time.Date(0, time.January, 1, hour, minute, second, 0, time.UTC)
}

// MatchWindow marks when scoring stops. There is no start; time before a
// zone's first event is unclaimed. End must be a time of day built by
// TimeOfDay or zonelog.ParseTimeOfDay; the zero value is rejected by the engine.
type MatchWindow struct {
	End time.Time
}

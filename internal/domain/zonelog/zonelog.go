// Package zonelog turns raw zone control logs into validated zones.
//
// A log is one event per line in the form "HH:MM:SS,team". The parser is the
// only component that sees raw text; everything downstream works on
// model.Zone values whose events are known to be in time order.
package zonelog

import (
	"strings"
	"time"

	"github.com/LuSo58/billboards-evaluation/internal/domain/model"
)

// Separator splits the timestamp from the team on a log line.
const Separator = ","

// timeLayout accepts an optional fractional second after the seconds field.
const timeLayout = "15:04:05"

// ParseTimeOfDay parses a wall-clock time such as "14:01:02" or "14:01:02.250".
func ParseTimeOfDay(s string) (time.Time, error) {
	return time.Parse(timeLayout, strings.TrimSpace(s))
}

// ParseLine parses a single log line. lineNo is only used for error reporting.
func ParseLine(lineNo int, line string) (model.Event, error) {
	stamp, team, ok := strings.Cut(line, Separator)
	if !ok {
		return model.Event{}, &ParseError{Line: lineNo, Text: line, Reason: ErrMissingSeparator}
	}
	at, err := ParseTimeOfDay(stamp)
	if err != nil {
		return model.Event{}, &ParseError{Line: lineNo, Text: line, Reason: ErrInvalidTimestamp, Err: err}
	}
	team = strings.TrimSpace(team)
	if team == "" {
		return model.Event{}, &ParseError{Line: lineNo, Text: line, Reason: ErrEmptyTeam}
	}
	return model.NewEvent(at, team), nil
}

// ParseEvents parses a multi-line log. A trailing newline does not add an
// empty line; any other blank line is an error. Events must be in
// non-decreasing time order.
func ParseEvents(text string) ([]model.Event, error) {
	lines := splitLines(text)
	events := make([]model.Event, 0, len(lines))
	for i, line := range lines {
		ev, err := ParseLine(i+1, line)
		if err != nil {
			return nil, err
		}
		if n := len(events); n > 0 && ev.Time.Before(events[n-1].Time) {
			return nil, &ParseError{Line: i + 1, Text: line, Reason: ErrOutOfOrder}
		}
		events = append(events, ev)
	}
	return events, nil
}

// ParseZone parses a log into a zone of the given size.
func ParseZone(size uint64, text string) (model.Zone, error) {
	if size == 0 {
		return model.Zone{}, ErrInvalidSize
	}
	events, err := ParseEvents(text)
	if err != nil {
		return model.Zone{}, err
	}
	return model.NewZone(size, events), nil
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

package service

import (
	"fmt"
	"strings"

	"github.com/LuSo58/billboards-evaluation/internal/domain/model"
	"github.com/LuSo58/billboards-evaluation/internal/domain/types"
	"github.com/LuSo58/billboards-evaluation/internal/domain/zonelog"
)

// ParseSubmission turns the wire form of a match into a board and window.
// Malformed logs surface as *zonelog.ParseError wrapped with the zone index.
func ParseSubmission(sub types.Submission) (model.Board, model.MatchWindow, error) {
	if strings.TrimSpace(sub.End) == "" {
		return model.Board{}, model.MatchWindow{}, fmt.Errorf("missing end: %w", ErrInvalidSubmission)
	}
	end, err := zonelog.ParseTimeOfDay(sub.End)
	if err != nil {
		return model.Board{}, model.MatchWindow{}, fmt.Errorf("invalid end %q: %w", sub.End, ErrInvalidSubmission)
	}

	zones := make([]model.Zone, len(sub.Zones))
	for i, zs := range sub.Zones {
		zone, err := zonelog.ParseZone(zs.Size, zs.Log)
		if err != nil {
			return model.Board{}, model.MatchWindow{}, fmt.Errorf("zone %d: %w", i, err)
		}
		zones[i] = zone
	}
	return model.NewBoard(zones...), model.MatchWindow{End: end}, nil
}

package testmatches

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/LuSo58/billboards-evaluation/internal/domain/model"
	"github.com/LuSo58/billboards-evaluation/internal/domain/types"
	"github.com/LuSo58/billboards-evaluation/pkg/logger"
	"github.com/google/uuid"
)

// Generation defaults.
const (
	defaultMaxEvents = 12
	defaultMaxSize   = 10
	minMatchSeconds  = 60
	maxMatchSeconds  = 3600
	startHour        = 12
)

var defaultTeams = []string{"red", "blue", "green", "amber", "violet", "teal"}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithSeed fixes the random source so runs are reproducible.
func WithSeed(seed int64) GeneratorOption {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewSource(seed))
	}
}

// WithTeams sets the team pool events are drawn from.
func WithTeams(teams []string) GeneratorOption {
	return func(g *Generator) {
		if len(teams) > 0 {
			g.teams = teams
		}
	}
}

// WithMaxEvents bounds the number of events per zone.
func WithMaxEvents(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.maxEvents = n
		}
	}
}

// WithMaxSize bounds the zone size.
func WithMaxSize(n uint64) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.maxSize = n
		}
	}
}

// Generator produces random but well-formed boards. Events are whole seconds,
// sorted, and never later than the match end. Zones may have empty logs.
// A Generator is not safe for concurrent use.
type Generator struct {
	rng       *rand.Rand
	teams     []string
	maxEvents int
	maxSize   uint64
}

// NewGenerator creates a generator. Without WithSeed it is seeded from the
// current time.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		teams:     defaultTeams,
		maxEvents: defaultMaxEvents,
		maxSize:   defaultMaxSize,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return g
}

// Board generates a board with the given number of zones and its window.
func (g *Generator) Board(zones int) (model.Board, model.MatchWindow) {
	start := model.TimeOfDay(startHour, 0, 0)
	span := minMatchSeconds + g.rng.Intn(maxMatchSeconds-minMatchSeconds+1)
	window := model.MatchWindow{End: start.Add(time.Duration(span) * time.Second)}

	out := make([]model.Zone, zones)
	for i := range out {
		size := 1 + uint64(g.rng.Int63n(int64(g.maxSize)))
		count := g.rng.Intn(g.maxEvents + 1)
		offsets := make([]int, count)
		for j := range offsets {
			offsets[j] = g.rng.Intn(span + 1)
		}
		sort.Ints(offsets)

		events := make([]model.Event, count)
		for j, off := range offsets {
			team := g.teams[g.rng.Intn(len(g.teams))]
			events[j] = model.NewEvent(start.Add(time.Duration(off)*time.Second), team)
		}
		out[i] = model.NewZone(size, events)
	}
	return model.NewBoard(out...), window
}

// Match generates a board and renders it as a submission with a fresh ID.
func (g *Generator) Match(zones int) Match {
	board, window := g.Board(zones)
	return Match{
		Submission: Render(uuid.NewString(), board, window),
		Board:      board,
		Window:     window,
	}
}

// Render turns a board into its wire form.
func Render(id string, board model.Board, window model.MatchWindow) types.Submission {
	sub := types.Submission{
		ID:    id,
		End:   window.End.Format("15:04:05"),
		Zones: make([]types.ZoneSubmission, board.Len()),
	}
	for i, zone := range board.Zones() {
		sub.Zones[i] = types.ZoneSubmission{Size: zone.Size(), Log: RenderLog(zone)}
	}
	return sub
}

// RenderLog writes a zone log in the line format the parser accepts.
func RenderLog(zone model.Zone) string {
	var b strings.Builder
	for _, ev := range zone.Events() {
		b.WriteString(ev.Time.Format("15:04:05"))
		b.WriteByte(',')
		b.WriteString(ev.Team)
		b.WriteByte('\n')
	}
	return b.String()
}

// teamNames builds n stable team identifiers.
func teamNames(n int) []string {
	if n <= 0 {
		return nil
	}
	teams := make([]string, n)
	for i := range teams {
		teams[i] = fmt.Sprintf("team-%03d", i)
	}
	return teams
}

// generateMatches creates the configured number of matches.
func generateMatches(ctx context.Context, config *Config, stats *Stats) ([]Match, error) {
	logger.Get().Info(ctx, "generating matches", logger.Int("numMatches", config.NumMatches))

	gen := NewGenerator(WithSeed(config.Seed), WithTeams(teamNames(config.NumTeams)))
	maxZones := config.ZonesPerMatch
	if maxZones < 1 {
		maxZones = 1
	}

	matches := make([]Match, config.NumMatches)
	for i := range matches {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during match generation: %w", err)
		}
		matches[i] = gen.Match(1 + gen.rng.Intn(maxZones))
	}

	stats.MatchesGenerated = len(matches)
	logger.Get().Info(ctx, "generated matches successfully", logger.Int("count", len(matches)))
	return matches, nil
}

package scoring_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/LuSo58/billboards-evaluation/internal/domain/model"
	scoring "github.com/LuSo58/billboards-evaluation/internal/domain/scoring"
	"github.com/LuSo58/billboards-evaluation/internal/testmatches"
	. "github.com/smartystreets/goconvey/convey"
)

func at(h, m, s int) time.Time { return model.TimeOfDay(h, m, s) }

func ev(t time.Time, team string) model.Event { return model.NewEvent(t, team) }

func window(t time.Time) model.MatchWindow { return model.MatchWindow{End: t} }

func TestEngine_Scenarios(t *testing.T) {
	Convey("Given a sequential engine", t, func() {
		engine := scoring.NewEngine()

		Convey("When red holds 10s and blue 20s of a size 3 zone", func() {
			board := model.NewBoard(model.NewZone(3, []model.Event{
				ev(at(14, 0, 0), "red"),
				ev(at(14, 0, 10), "blue"),
			}))
			scores, err := engine.Evaluate(board, window(at(14, 0, 30)))

			Convey("Then red should score 30 and blue 60", func() {
				So(err, ShouldBeNil)
				So(scores, ShouldResemble, model.ScoreTable{"red": 30, "blue": 60})
			})
		})

		Convey("When the match ends exactly at the only event", func() {
			board := model.NewBoard(model.NewZone(5, []model.Event{ev(at(10, 0, 0), "A")}))
			scores, err := engine.Evaluate(board, window(at(10, 0, 0)))

			Convey("Then the team should appear with zero", func() {
				So(err, ShouldBeNil)
				So(scores, ShouldResemble, model.ScoreTable{"A": 0})
			})
		})

		Convey("When X holds two zones of sizes 2 and 4 for 100 seconds", func() {
			board := model.NewBoard(
				model.NewZone(2, []model.Event{ev(at(12, 0, 0), "X")}),
				model.NewZone(4, []model.Event{ev(at(12, 0, 0), "X")}),
			)
			scores, err := engine.Evaluate(board, window(at(12, 1, 40)))

			Convey("Then X should score 600", func() {
				So(err, ShouldBeNil)
				So(scores, ShouldResemble, model.ScoreTable{"X": 600})
			})
		})

		Convey("When an event lies after the match end", func() {
			board := model.NewBoard(model.NewZone(1, []model.Event{
				ev(at(9, 0, 0), "A"),
				ev(at(9, 0, 50), "B"),
			}))
			scores, err := engine.Evaluate(board, window(at(9, 0, 20)))

			Convey("Then the interval should be clipped to the match end", func() {
				So(err, ShouldBeNil)
				So(scores, ShouldResemble, model.ScoreTable{"A": 20, "B": 0})
			})
		})

		Convey("When a team re-claims a zone it already holds", func() {
			board := model.NewBoard(model.NewZone(2, []model.Event{
				ev(at(8, 0, 0), "A"),
				ev(at(8, 0, 15), "A"),
				ev(at(8, 0, 40), "B"),
			}))
			scores, err := engine.Evaluate(board, window(at(8, 1, 0)))

			Convey("Then the team should be scored for the full span once", func() {
				So(err, ShouldBeNil)
				So(scores["A"], ShouldEqual, 2*40)
				So(scores["B"], ShouldEqual, 2*20)
			})
		})

		Convey("When events repeat the same timestamp", func() {
			board := model.NewBoard(model.NewZone(1, []model.Event{
				ev(at(8, 0, 0), "A"),
				ev(at(8, 0, 0), "B"),
			}))
			scores, err := engine.Evaluate(board, window(at(8, 0, 10)))

			Convey("Then the first interval should be empty", func() {
				So(err, ShouldBeNil)
				So(scores, ShouldResemble, model.ScoreTable{"A": 0, "B": 10})
			})
		})

		Convey("When intervals have sub-second precision", func() {
			board := model.NewBoard(model.NewZone(10, []model.Event{
				ev(at(8, 0, 0).Add(900*time.Millisecond), "A"),
				ev(at(8, 0, 2).Add(100*time.Millisecond), "B"),
			}))
			scores, err := engine.Evaluate(board, window(at(8, 0, 3).Add(50*time.Millisecond)))

			Convey("Then each interval should be truncated to whole seconds", func() {
				So(err, ShouldBeNil)
				So(scores["A"], ShouldEqual, 10) // 1.2s -> 1s
				So(scores["B"], ShouldEqual, 0)  // 0.95s -> 0s
			})
		})

		Convey("When the board is empty", func() {
			scores, err := engine.Evaluate(model.NewBoard(), window(at(8, 0, 0)))

			Convey("Then the table should be empty", func() {
				So(err, ShouldBeNil)
				So(scores, ShouldBeEmpty)
			})
		})

		Convey("When every zone log is empty", func() {
			board := model.NewBoard(model.NewZone(3, nil), model.NewZone(9, nil))
			scores, err := engine.Evaluate(board, window(at(8, 0, 0)))

			Convey("Then the table should be empty", func() {
				So(err, ShouldBeNil)
				So(scores, ShouldBeEmpty)
			})
		})
	})
}

func TestEngine_Overflow(t *testing.T) {
	Convey("Given a zone whose size times duration exceeds uint64", t, func() {
		board := model.NewBoard(model.NewZone(math.MaxUint64, []model.Event{ev(at(8, 0, 0), "A")}))

		Convey("When evaluating", func() {
			_, err := scoring.NewEngine().Evaluate(board, window(at(8, 0, 2)))

			Convey("Then it should fail with ErrOverflow", func() {
				So(errors.Is(err, scoring.ErrOverflow), ShouldBeTrue)
			})
		})
	})

	Convey("Given two zones whose sum exceeds uint64", t, func() {
		half := uint64(math.MaxUint64/2 + 1)
		board := model.NewBoard(
			model.NewZone(half, []model.Event{ev(at(8, 0, 0), "A")}),
			model.NewZone(half, []model.Event{ev(at(8, 0, 0), "A")}),
		)

		Convey("Then both evaluation paths should fail instead of wrapping", func() {
			_, err := scoring.NewEngine().Evaluate(board, window(at(8, 0, 1)))
			So(errors.Is(err, scoring.ErrOverflow), ShouldBeTrue)

			_, err = scoring.NewEngine(scoring.WithParallelism(4)).Evaluate(board, window(at(8, 0, 1)))
			So(errors.Is(err, scoring.ErrOverflow), ShouldBeTrue)
		})
	})
}

func TestEngine_Invariants(t *testing.T) {
	Convey("Given a zone assembled out of order", t, func() {
		zone := model.NewZone(1, []model.Event{
			ev(at(8, 0, 10), "A"),
			ev(at(8, 0, 0), "B"),
		})
		board := model.NewBoard(model.NewZone(1, nil), zone)

		Convey("When checks are enabled", func() {
			_, err := scoring.NewEngine(scoring.WithInvariantChecks(true)).Evaluate(board, window(at(8, 1, 0)))

			Convey("Then evaluation should report an invariant violation", func() {
				So(errors.Is(err, scoring.ErrInvariantViolation), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "zone 1")
			})
		})

		Convey("When checking the zone directly", func() {
			So(errors.Is(scoring.CheckOrdered(zone), scoring.ErrInvariantViolation), ShouldBeTrue)
			So(scoring.CheckOrdered(board.Zone(0)), ShouldBeNil)
		})

		Convey("When a zone has size zero and checks are enabled", func() {
			sized := model.NewBoard(model.NewZone(0, []model.Event{ev(at(8, 0, 0), "A")}))
			_, err := scoring.NewEngine(scoring.WithInvariantChecks(true)).Evaluate(sized, window(at(8, 1, 0)))

			Convey("Then evaluation should report an invariant violation", func() {
				So(errors.Is(err, scoring.ErrInvariantViolation), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "zone 0")
				So(errors.Is(scoring.CheckZone(board.Zone(1)), scoring.ErrInvariantViolation), ShouldBeTrue)
				So(scoring.CheckZone(board.Zone(0)), ShouldBeNil)
			})
		})

		Convey("When checks are disabled", func() {
			_, err := scoring.NewEngine().Evaluate(board, window(at(8, 1, 0)))

			Convey("Then the engine should not re-validate", func() {
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestMerge(t *testing.T) {
	Convey("Given partial tables", t, func() {
		a := model.ScoreTable{"red": 1, "blue": 2}
		b := model.ScoreTable{"blue": 3, "green": 4}
		c := model.ScoreTable{"red": 5}

		Convey("Then merge order should not matter", func() {
			left := model.ScoreTable{}
			So(scoring.Merge(left, a), ShouldBeNil)
			So(scoring.Merge(left, b), ShouldBeNil)
			So(scoring.Merge(left, c), ShouldBeNil)

			right := model.ScoreTable{}
			So(scoring.Merge(right, c), ShouldBeNil)
			So(scoring.Merge(right, b), ShouldBeNil)
			So(scoring.Merge(right, a), ShouldBeNil)

			So(left, ShouldResemble, right)
			So(left, ShouldResemble, model.ScoreTable{"red": 6, "blue": 5, "green": 4})
		})
	})
}

func TestEngine_Properties(t *testing.T) {
	Convey("Given randomly generated boards", t, func() {
		gen := testmatches.NewGenerator(testmatches.WithSeed(7))
		sequential := scoring.NewEngine(scoring.WithInvariantChecks(true))
		parallel := scoring.NewEngine(scoring.WithParallelism(8), scoring.WithInvariantChecks(true))

		for round := 0; round < 25; round++ {
			board, win := gen.Board(1 + round%9)

			scores, err := sequential.Evaluate(board, win)
			So(err, ShouldBeNil)

			// Conservation: every claimed second is attributed exactly once.
			var claimed uint64
			for _, zone := range board.Zones() {
				if zone.Len() == 0 {
					continue
				}
				first := zone.At(0).Time
				claimed += zone.Size() * uint64(win.End.Sub(first)/time.Second)
			}
			total, err := scores.Total()
			So(err, ShouldBeNil)
			So(total, ShouldEqual, claimed)

			// Determinism across runs and across the parallel fold.
			again, err := sequential.Evaluate(board, win)
			So(err, ShouldBeNil)
			So(again, ShouldResemble, scores)
			par, err := parallel.Evaluate(board, win)
			So(err, ShouldBeNil)
			So(par, ShouldResemble, scores)

			// Monotonicity: a later end only helps the last holders.
			later, err := sequential.Evaluate(board, window(win.End.Add(time.Minute)))
			So(err, ShouldBeNil)
			for team, score := range scores {
				So(later[team], ShouldBeGreaterThanOrEqualTo, score)
			}

			// Keys are exactly the teams seen in the logs.
			seen := map[string]bool{}
			for _, zone := range board.Zones() {
				for _, e := range zone.Events() {
					seen[e.Team] = true
				}
			}
			So(len(scores), ShouldEqual, len(seen))
		}
	})
}

func TestEngine_ZeroWindow(t *testing.T) {
	Convey("Given a board scored against a window without an end", t, func() {
		board := model.NewBoard(model.NewZone(1, []model.Event{ev(at(8, 0, 0), "A")}))

		Convey("Then both engine paths should reject it instead of scoring a year", func() {
			for _, engine := range []*scoring.Engine{scoring.NewEngine(), scoring.NewEngine(scoring.WithParallelism(4))} {
				scores, err := engine.Evaluate(board, model.MatchWindow{})
				So(errors.Is(err, scoring.ErrInvariantViolation), ShouldBeTrue)
				So(scores, ShouldBeNil)
			}
			_, err := scoring.ScoreZone(board.Zone(0), model.MatchWindow{})
			So(errors.Is(err, scoring.ErrInvariantViolation), ShouldBeTrue)
		})

		Convey("Then an empty board should be rejected too", func() {
			_, err := scoring.NewEngine().Evaluate(model.NewBoard(), model.MatchWindow{})
			So(errors.Is(err, scoring.ErrInvariantViolation), ShouldBeTrue)
		})

		Convey("Then midnight built by TimeOfDay is a valid end", func() {
			scores, err := scoring.NewEngine().Evaluate(board, window(at(0, 0, 0)))
			So(err, ShouldBeNil)
			So(scores, ShouldResemble, model.ScoreTable{"A": 0})
		})
	})
}

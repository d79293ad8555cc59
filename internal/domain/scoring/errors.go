package scoring

import (
	"errors"

	"github.com/LuSo58/billboards-evaluation/internal/domain/model"
)

// Sentinel kinds for engine failures.
var (
	// ErrInvariantViolation means an unordered log reached the engine. It is
	// an upstream contract break, not a user input error.
	ErrInvariantViolation = errors.New("zone log invariant violated")
	// ErrOverflow means a score would exceed the uint64 range.
	ErrOverflow = model.ErrScoreOverflow
)

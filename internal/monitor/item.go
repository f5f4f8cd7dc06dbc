package monitor

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nfowatch/nfowatch/internal/parse"
)

type (
	ItemState int

	// Item tracks a single detected file through the pipeline. It exists
	// only in process memory, from detection until its task reaches a
	// terminal state; at most one Item per absolute path is live at a time
	// (enforced by the path-keyed task group).
	Item struct {
		ID         uuid.UUID
		Path       string
		State      ItemState
		DetectedAt time.Time

		// Guess is populated once the Parsing state has run.
		Guess *parse.Guess

		// Skipped distinguishes a Done that generated a sidecar from a
		// Done that found nothing to do (sidecar already present, or
		// auto-processing disabled).
		Skipped bool
	}
)

const (
	Detected ItemState = iota
	Debouncing
	Parsing
	Searching
	Fetching
	Generating
	Done
	Failed
)

func newItem(path string) *Item {
	return &Item{
		ID:         uuid.New(),
		Path:       path,
		State:      Detected,
		DetectedAt: time.Now(),
	}
}

func (item *Item) String() string {
	return fmt.Sprintf("Item{ID=%s path=%s state=%s skipped=%v}", item.ID, item.Path, item.State, item.Skipped)
}

func (s ItemState) String() string {
	switch s {
	case Detected:
		return fmt.Sprintf("DETECTED[%d]", s)
	case Debouncing:
		return fmt.Sprintf("DEBOUNCING[%d]", s)
	case Parsing:
		return fmt.Sprintf("PARSING[%d]", s)
	case Searching:
		return fmt.Sprintf("SEARCHING[%d]", s)
	case Fetching:
		return fmt.Sprintf("FETCHING[%d]", s)
	case Generating:
		return fmt.Sprintf("GENERATING[%d]", s)
	case Done:
		return fmt.Sprintf("DONE[%d]", s)
	case Failed:
		return fmt.Sprintf("FAILED[%d]", s)
	default:
		return fmt.Sprintf("UNKNOWN[%d]", s)
	}
}

package syncer

import "github.com/google/uuid"

// Outcome is the terminal state of a run
type Outcome int

const (
	// OutcomeSuccess means every stage ran to completion.
	OutcomeSuccess Outcome = iota
	// OutcomePartial means a connection failure stopped the run early;
	// items processed before the failure were committed.
	OutcomePartial
	// OutcomeAborted means nothing was committed.
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomePartial:
		return "partial"
	case OutcomeAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Run carries the user-facing progress text and the abort state of one
// catalog operation. A Run must not be shared between operations in
// flight at the same time; callers serialize their triggers.
type Run struct {
	ID string

	// Phase and Item are updated before each remote call.
	Phase string
	Item  string

	// ConnectionFailed is the cooperative abort flag. It is checked
	// before each remaining item; a fetch already started runs to its
	// own timeout.
	ConnectionFailed bool

	// OnProgress, when set, is invoked after each progress update.
	OnProgress func(phase, item string)
}

// NewRun creates a run context with a fresh ID
func NewRun() *Run {
	return &Run{ID: uuid.NewString()}
}

// Progress records the current phase and item
func (r *Run) Progress(phase, item string) {
	r.Phase = phase
	r.Item = item
	if r.OnProgress != nil {
		r.OnProgress(phase, item)
	}
}

package editor

import (
	"github.com/dshills/jsonmend/internal/locate"
	"github.com/dshills/jsonmend/internal/patch"
	"github.com/dshills/jsonmend/internal/validate"
)

// Content is one side of a document change.
type Content struct {
	Text string
}

// Meta carries derived information accompanying a change event.
type Meta struct {
	// ContentErrors is the validation outcome for the new text.
	ContentErrors validate.Outcome

	// PatchResult is set when the change came from a structural command,
	// carrying the applied text and the inverse patch.
	PatchResult *patch.Result
}

// Change is the single event emitted per canonical-text update.
type Change struct {
	Current  Content
	Previous Content
	Meta     Meta
}

// Action is a user-triggerable remediation attached to a diagnostic.
type Action int

const (
	// ActionRepair offers one-click automatic repair of a repairable
	// parse failure.
	ActionRepair Action = iota
)

// String returns a human-readable action name.
func (a Action) String() string {
	switch a {
	case ActionRepair:
		return "repair"
	default:
		return "unknown"
	}
}

// Diagnostic is the display-oriented projection of one validation finding.
type Diagnostic struct {
	Path     locate.Path
	Message  string
	Severity validate.Severity
	Span     locate.Span
	Actions  []Action
}

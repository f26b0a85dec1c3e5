// Package validate parses document text, classifies the result, and runs an
// optional host-supplied semantic validator. Results are memoized so that an
// automatic lint pass and an explicit validate call for the same text state
// share one parse.
package validate

import (
	"github.com/dshills/jsonmend/internal/locate"
)

// Kind discriminates validation outcomes. Exactly one kind holds for any
// text state; parse failures and semantic issues are mutually exclusive
// because semantic validation only runs on parseable text.
type Kind int

const (
	// KindValid means the text parses and the validator (if any) found
	// no issues.
	KindValid Kind = iota

	// KindParseFailure means the text is not valid JSON and automatic
	// repair is not expected to succeed.
	KindParseFailure

	// KindRepairable means the text is not valid JSON but the repair
	// function produced a parseable result in a dry run.
	KindRepairable

	// KindSemanticIssues means the text parses but the validator
	// reported at least one issue.
	KindSemanticIssues
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindValid:
		return "valid"
	case KindParseFailure:
		return "parse-failure"
	case KindRepairable:
		return "repairable"
	case KindSemanticIssues:
		return "semantic-issues"
	default:
		return "unknown"
	}
}

// Severity ranks semantic issues.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

// String returns a human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Issue is a single semantic validation finding.
type Issue struct {
	Path     locate.Path
	Message  string
	Severity Severity
}

// Outcome is the classified result of validating one text state.
// Kind selects which fields are meaningful: Message/Position/Line/Column for
// parse failures (repairable or not), Issues for semantic issues.
type Outcome struct {
	Kind Kind

	// Parse failure details.
	Message  string
	Position int
	Line     int
	Column   int

	// Semantic findings.
	Issues []Issue
}

// OK reports whether the outcome is KindValid.
func (o Outcome) OK() bool {
	return o.Kind == KindValid
}

package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/dshills/jsonmend/internal/locate"
)

// Validator checks a parsed JSON value for semantic problems. It is supplied
// by the host and treated as an untrusted black box: panics are recovered and
// forwarded to the error hook rather than crashing the pipeline.
type Validator func(value any) []Issue

// RepairFunc attempts to fix malformed JSON text. It is used in dry-run mode
// to refine a parse failure into a repairable one.
type RepairFunc func(text string) (string, error)

// Pipeline validates document text with capacity-one memoization keyed on the
// (text, validator identity) pair.
//
// Thread-safety: all methods are safe for concurrent use. The validator runs
// without the pipeline lock held.
type Pipeline struct {
	mu        sync.Mutex
	validator Validator
	repair    RepairFunc
	onError   func(error)

	memo struct {
		ok          bool
		text        string
		validatorID uintptr
		outcome     Outcome
	}
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithValidator sets the semantic validator.
func WithValidator(v Validator) Option {
	return func(p *Pipeline) {
		p.validator = v
	}
}

// WithRepairFunc sets the repair function used to probe repairability.
func WithRepairFunc(fn RepairFunc) Option {
	return func(p *Pipeline) {
		p.repair = fn
	}
}

// WithErrorHook sets the callback that receives validator failures.
func WithErrorHook(hook func(error)) Option {
	return func(p *Pipeline) {
		p.onError = hook
	}
}

// New creates a validation pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetValidator replaces the semantic validator. The memo entry keyed on the
// previous validator no longer matches, so the next Validate re-runs.
func (p *Pipeline) SetValidator(v Validator) {
	p.mu.Lock()
	p.validator = v
	p.mu.Unlock()
}

// Validate classifies text. Calling it twice in a row for the same text and
// validator returns the memoized outcome without re-running the parser or
// the validator.
func (p *Pipeline) Validate(text string) Outcome {
	p.mu.Lock()
	validator := p.validator
	id := validatorID(validator)
	if p.memo.ok && p.memo.text == text && p.memo.validatorID == id {
		outcome := p.memo.outcome
		p.mu.Unlock()
		return outcome
	}
	repair := p.repair
	onError := p.onError
	p.mu.Unlock()

	outcome := p.run(text, validator, repair, onError)

	p.mu.Lock()
	p.memo.ok = true
	p.memo.text = text
	p.memo.validatorID = id
	p.memo.outcome = outcome
	p.mu.Unlock()

	return outcome
}

// Invalidate drops the memoized outcome.
func (p *Pipeline) Invalidate() {
	p.mu.Lock()
	p.memo.ok = false
	p.mu.Unlock()
}

// run performs the actual parse and semantic validation, without the lock.
func (p *Pipeline) run(text string, validator Validator, repair RepairFunc, onError func(error)) Outcome {
	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return classifyParseError(text, err, repair)
	}

	if validator == nil {
		return Outcome{Kind: KindValid}
	}

	issues, err := runValidator(validator, value)
	if err != nil {
		if onError != nil {
			onError(err)
		}
		// A failing validator must not block editing; treat the text
		// as valid for this run.
		return Outcome{Kind: KindValid}
	}

	if len(issues) == 0 {
		return Outcome{Kind: KindValid}
	}
	return Outcome{Kind: KindSemanticIssues, Issues: issues}
}

// classifyParseError turns a json decode error into a ParseFailure or
// Repairable outcome, probing the repair function in dry-run mode.
func classifyParseError(text string, err error, repair RepairFunc) Outcome {
	position := 0
	message := err.Error()

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		// json.SyntaxError offsets point one past the offending byte.
		position = int(syntaxErr.Offset) - 1
		if position < 0 {
			position = 0
		}
		message = syntaxErr.Error()
	}

	line, column := locate.ByOffset(text, position)
	outcome := Outcome{
		Kind:     KindParseFailure,
		Message:  message,
		Position: position,
		Line:     line,
		Column:   column,
	}

	if repair != nil {
		if fixed, rerr := repair(text); rerr == nil && json.Valid([]byte(fixed)) {
			outcome.Kind = KindRepairable
		}
	}

	return outcome
}

// runValidator invokes a host validator, converting panics into errors.
func runValidator(validator Validator, value any) (issues []Issue, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validator panic: %v", r)
		}
	}()
	return validator(value), nil
}

// validatorID derives a stable identity for memo keying. Two Validate calls
// share a memo entry only when the validator function value is the same.
func validatorID(v Validator) uintptr {
	if v == nil {
		return 0
	}
	return reflect.ValueOf(v).Pointer()
}

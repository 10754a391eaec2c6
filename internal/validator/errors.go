package validator

import (
	"errors"
	"strings"
)

var (
	ErrInvalidTotal       = errors.New("total amount must be a positive number")
	ErrMissingPayer       = errors.New("payer is required")
	ErrMissingSplits      = errors.New("at least one split is required")
	ErrUnknownPayer       = errors.New("payer is not a fund member")
	ErrUnknownParticipant = errors.New("participant is not a fund member")
	ErrInvalidSplitAmount = errors.New("split amount is not a number")
	ErrImbalanced         = errors.New("splits do not balance")
)

// ValidationError collects every fatal problem found in one payload.
// errors.Is matches each problem's sentinel.
type ValidationError struct {
	Problems []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return "invalid transaction: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() []error {
	return e.Problems
}

// problem pairs a human-readable message with the sentinel it represents.
type problem struct {
	kind error
	msg  string
}

func (p *problem) Error() string { return p.msg }

func (p *problem) Unwrap() error { return p.kind }

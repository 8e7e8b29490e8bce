package enrollment

import (
	"errors"
	"strings"
)

// Expected business outcomes of the workflow. Handlers map these to HTTP
// statuses; anything else is an infrastructure failure.
var (
	ErrRequestNotFound          = errors.New("enrollment request not found")
	ErrDuplicateRequest         = errors.New("an active enrollment request already exists for this trial")
	ErrAlreadyEnrolledElsewhere = errors.New("participant already has an active enrollment in another trial")
	ErrCapacityReached          = errors.New("trial has reached its participant capacity")
	ErrInvalidStateTransition   = errors.New("request is not in a state that allows this transition")
	ErrConcurrentModification   = errors.New("trial was modified concurrently, retries exhausted")
)

// NotEligibleError carries the per-criterion reasons a participant failed a
// trial's eligibility check.
type NotEligibleError struct {
	Reasons []string
}

func (e *NotEligibleError) Error() string {
	return "participant is not eligible: " + strings.Join(e.Reasons, "; ")
}

// Package enrollment owns the request lifecycle: a participant submits a
// request against a trial, an administrator approves or rejects it, and an
// approved participant may later withdraw. The workflow is the only writer
// of a trial's enrollment state; approval re-checks capacity against the
// store with a compare-and-swap and retries a bounded number of times.
package enrollment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clintrack/clintrack/internal/domain/eligibility"
	"github.com/clintrack/clintrack/internal/domain/participant"
	"github.com/clintrack/clintrack/internal/domain/trial"
)

// maxEnrollAttempts bounds the read-check-write retry loop on CAS conflicts.
const maxEnrollAttempts = 3

// TxRunner executes fn atomically. Production wiring passes db.WithTx bound
// to the pool; tests pass nothing and fn runs directly.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Workflow struct {
	requests     Repository
	trials       trial.Repository
	participants participant.Repository
	tx           TxRunner
	now          func() time.Time
}

func NewWorkflow(requests Repository, trials trial.Repository, participants participant.Repository, tx TxRunner) *Workflow {
	if tx == nil {
		tx = func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
	}
	return &Workflow{
		requests:     requests,
		trials:       trials,
		participants: participants,
		tx:           tx,
		now:          time.Now,
	}
}

// Submit creates a pending request after checking eligibility server-side.
// Duplicate active requests for the same trial and active enrollments in any
// other trial are refused. A full trial still accepts requests; capacity is
// enforced at approval, when it actually matters.
func (w *Workflow) Submit(ctx context.Context, trialID, participantID uuid.UUID) (*Request, error) {
	t, err := w.trials.GetByID(ctx, trialID)
	if err != nil {
		return nil, err
	}
	p, err := w.participants.GetByID(ctx, participantID)
	if err != nil {
		return nil, err
	}

	if t.HasParticipant(participantID) {
		return nil, ErrDuplicateRequest
	}
	if _, err := w.requests.FindActiveByTrialAndParticipant(ctx, trialID, participantID); err == nil {
		return nil, ErrDuplicateRequest
	} else if !errors.Is(err, ErrRequestNotFound) {
		return nil, err
	}
	if _, err := w.requests.FindActiveByParticipant(ctx, participantID); err == nil {
		return nil, ErrAlreadyEnrolledElsewhere
	} else if !errors.Is(err, ErrRequestNotFound) {
		return nil, err
	}

	result := eligibility.Evaluate(t.Criteria, p.Profile(), w.now())
	if !result.Eligible {
		return nil, &NotEligibleError{Reasons: result.Reasons}
	}

	req := &Request{TrialID: trialID, ParticipantID: participantID, Status: StatusPending}
	if err := w.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Approve moves a pending request to approved and enrolls the participant.
// Each attempt re-reads the trial and commits the membership append, counter
// increment and status change together, guarded by the counter value read; a
// conflict rolls the attempt back and retries until the bound is hit.
func (w *Workflow) Approve(ctx context.Context, requestID uuid.UUID) (*Request, error) {
	req, err := w.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, ErrInvalidStateTransition
	}

	for attempt := 0; attempt < maxEnrollAttempts; attempt++ {
		var updated *Request
		err := w.tx(ctx, func(ctx context.Context) error {
			t, err := w.trials.GetByID(ctx, req.TrialID)
			if err != nil {
				return err
			}
			// Idempotent against double-approval racing on the same request:
			// if the participant is already in the set, only flip the status.
			if !t.HasParticipant(req.ParticipantID) {
				if t.CapacityReached() {
					return ErrCapacityReached
				}
				if err := w.trials.EnrollParticipant(ctx, t.ID, req.ParticipantID, t.ParticipantsEnrolled); err != nil {
					return err
				}
			}
			updated, err = w.requests.UpdateStatus(ctx, req.ID, StatusApproved, w.now())
			return err
		})
		if errors.Is(err, trial.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, ErrConcurrentModification
}

// Reject moves a pending request to rejected. Rejection is terminal but
// non-blocking: the participant may submit a fresh request later.
func (w *Workflow) Reject(ctx context.Context, requestID uuid.UUID) (*Request, error) {
	req, err := w.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, ErrInvalidStateTransition
	}
	return w.requests.UpdateStatus(ctx, req.ID, StatusRejected, w.now())
}

// Withdraw removes a request. A pending request is simply deleted; an
// approved one also releases the participant's trial slot via the guarded
// decrement, with the same bounded retry as Approve.
func (w *Workflow) Withdraw(ctx context.Context, requestID uuid.UUID) error {
	req, err := w.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	switch req.Status {
	case StatusPending:
		return w.requests.Delete(ctx, req.ID)
	case StatusApproved:
		for attempt := 0; attempt < maxEnrollAttempts; attempt++ {
			err := w.tx(ctx, func(ctx context.Context) error {
				t, err := w.trials.GetByID(ctx, req.TrialID)
				if err != nil {
					return err
				}
				if t.HasParticipant(req.ParticipantID) {
					if err := w.trials.WithdrawParticipant(ctx, t.ID, req.ParticipantID, t.ParticipantsEnrolled); err != nil {
						return err
					}
				}
				return w.requests.Delete(ctx, req.ID)
			})
			if errors.Is(err, trial.ErrConflict) {
				continue
			}
			return err
		}
		return ErrConcurrentModification
	default:
		return ErrInvalidStateTransition
	}
}

// Get returns a single request.
func (w *Workflow) Get(ctx context.Context, id uuid.UUID) (*Request, error) {
	return w.requests.GetByID(ctx, id)
}

// CheckEligibility evaluates a participant against a trial without creating
// a request, so clients can show the verdict up front.
func (w *Workflow) CheckEligibility(ctx context.Context, trialID, participantID uuid.UUID) (*eligibility.Result, error) {
	t, err := w.trials.GetByID(ctx, trialID)
	if err != nil {
		return nil, err
	}
	p, err := w.participants.GetByID(ctx, participantID)
	if err != nil {
		return nil, err
	}
	result := eligibility.Evaluate(t.Criteria, p.Profile(), w.now())
	return &result, nil
}

func (w *Workflow) ListByTrial(ctx context.Context, trialID uuid.UUID, status string, limit, offset int) ([]*Request, int, error) {
	return w.requests.ListByTrial(ctx, trialID, status, limit, offset)
}

func (w *Workflow) ListByParticipant(ctx context.Context, participantID uuid.UUID, limit, offset int) ([]*Request, int, error) {
	return w.requests.ListByParticipant(ctx, participantID, limit, offset)
}

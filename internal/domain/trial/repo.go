package trial

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no trial matches the lookup.
	ErrNotFound = errors.New("trial not found")

	// ErrConflict is returned by EnrollParticipant and WithdrawParticipant
	// when the guarded update matched no row: either the expected enrolled
	// count went stale, the trial is full, or the membership precondition
	// failed. Callers re-read the trial to tell these apart.
	ErrConflict = errors.New("trial enrollment conflict")
)

type Repository interface {
	Create(ctx context.Context, t *Trial) error
	GetByID(ctx context.Context, id uuid.UUID) (*Trial, error)
	Update(ctx context.Context, t *Trial) error
	UpdateEvents(ctx context.Context, t *Trial) error
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns trials matching the optional filters: "title" is a
	// case-insensitive substring match, "category" an exact match.
	List(ctx context.Context, filters map[string]string, limit, offset int) ([]*Trial, int, error)

	// EnrollParticipant atomically appends the participant and increments the
	// enrolled counter, guarded by the counter value the caller read
	// (compare-and-swap) plus the capacity bound and set uniqueness.
	EnrollParticipant(ctx context.Context, trialID, participantID uuid.UUID, expectedEnrolled int) error

	// WithdrawParticipant is the inverse guarded update: removes the
	// participant and decrements the counter.
	WithdrawParticipant(ctx context.Context, trialID, participantID uuid.UUID, expectedEnrolled int) error
}

package enrollment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)

	// FindActiveByTrialAndParticipant returns the pending or approved request
	// tying the participant to this trial, or ErrRequestNotFound.
	FindActiveByTrialAndParticipant(ctx context.Context, trialID, participantID uuid.UUID) (*Request, error)

	// FindActiveByParticipant returns the participant's pending or approved
	// request across all trials, or ErrRequestNotFound.
	FindActiveByParticipant(ctx context.Context, participantID uuid.UUID) (*Request, error)

	ListByTrial(ctx context.Context, trialID uuid.UUID, status string, limit, offset int) ([]*Request, int, error)
	ListByParticipant(ctx context.Context, participantID uuid.UUID, limit, offset int) ([]*Request, int, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status string, decidedAt time.Time) (*Request, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

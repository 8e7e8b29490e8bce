package participant

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no participant matches the lookup.
var ErrNotFound = errors.New("participant not found")

type Repository interface {
	Create(ctx context.Context, p *Participant) error
	GetByID(ctx context.Context, id uuid.UUID) (*Participant, error)
	GetByEmail(ctx context.Context, email string) (*Participant, error)
	Update(ctx context.Context, p *Participant) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Participant, int, error)
}

package enrollment

import (
	"time"

	"github.com/google/uuid"
)

// Request statuses. A request is created pending and moves to exactly one of
// approved or rejected; both are terminal.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Request maps to the enrollment_request table.
type Request struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	TrialID       uuid.UUID  `db:"trial_id" json:"trial_id"`
	ParticipantID uuid.UUID  `db:"participant_id" json:"participant_id"`
	Status        string     `db:"status" json:"status"`
	DecidedAt     *time.Time `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Active reports whether the request still ties up the participant: pending
// requests block duplicates, approved ones mean the participant is enrolled.
// Rejected requests block nothing.
func (r *Request) Active() bool {
	return r.Status == StatusPending || r.Status == StatusApproved
}

package participant

import (
	"time"

	"github.com/google/uuid"

	"github.com/clintrack/clintrack/internal/domain/eligibility"
)

// Roles a participant account can hold.
const (
	RoleAdmin       = "admin"
	RoleParticipant = "participant"
)

// Participant maps to the participant table. The medical profile is captured
// at registration and is immutable afterwards.
type Participant struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	Name                string    `db:"name" json:"name"`
	Email               string    `db:"email" json:"email"`
	Mobile              string    `db:"mobile" json:"mobile"`
	DateOfBirth         time.Time `db:"date_of_birth" json:"date_of_birth"`
	Gender              string    `db:"gender" json:"gender"`
	ObesityCategory     string    `db:"obesity_category" json:"obesity_category"`
	BPCategory          string    `db:"bp_category" json:"bp_category"`
	DiabetesStatus      string    `db:"diabetes_status" json:"diabetes_status"`
	HasAsthma           bool      `db:"has_asthma" json:"has_asthma"`
	HasChronicIllnesses bool      `db:"has_chronic_illnesses" json:"has_chronic_illnesses"`
	Role                string    `db:"role" json:"role"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// Age returns the participant's age in whole years as of now.
func (p *Participant) Age(now time.Time) int {
	return p.Profile().Age(now)
}

// Profile projects the fields the eligibility evaluator reads.
func (p *Participant) Profile() eligibility.Profile {
	return eligibility.Profile{
		Gender:              p.Gender,
		DateOfBirth:         p.DateOfBirth,
		ObesityCategory:     p.ObesityCategory,
		BPCategory:          p.BPCategory,
		DiabetesStatus:      p.DiabetesStatus,
		HasAsthma:           p.HasAsthma,
		HasChronicIllnesses: p.HasChronicIllnesses,
	}
}

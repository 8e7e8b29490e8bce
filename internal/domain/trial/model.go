package trial

import (
	"time"

	"github.com/google/uuid"

	"github.com/clintrack/clintrack/internal/domain/eligibility"
)

// Trial maps to the trial table. ParticipantsEnrolled always equals
// len(ParticipantIDs); the enrollment workflow is the only writer of both.
type Trial struct {
	ID                   uuid.UUID            `db:"id" json:"id"`
	Title                string               `db:"title" json:"title"`
	Description          string               `db:"description" json:"description"`
	Category             string               `db:"category" json:"category"`
	TotalPhases          int                  `db:"total_phases" json:"total_phases"`
	PhaseDates           map[int]string       `db:"phase_dates" json:"phase_dates"`
	ParticipantsRequired int                  `db:"participants_required" json:"participants_required"`
	ParticipantsEnrolled int                  `db:"participants_enrolled" json:"participants_enrolled"`
	ParticipantIDs       []uuid.UUID          `db:"participant_ids" json:"participant_ids"`
	Criteria             eligibility.Criteria `db:"criteria" json:"criteria"`

	AdverseEventsReported int `db:"adverse_events_reported" json:"adverse_events_reported"`
	AdverseEventsHigh     int `db:"adverse_events_high" json:"adverse_events_high"`
	AdverseEventsMedium   int `db:"adverse_events_medium" json:"adverse_events_medium"`
	AdverseEventsLow      int `db:"adverse_events_low" json:"adverse_events_low"`

	// One slot per observation period.
	NegativeImpacts []int `db:"negative_impacts" json:"negative_impacts"`
	PositiveImpacts []int `db:"positive_impacts" json:"positive_impacts"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HasParticipant reports whether the participant is already enrolled.
func (t *Trial) HasParticipant(id uuid.UUID) bool {
	for _, pid := range t.ParticipantIDs {
		if pid == id {
			return true
		}
	}
	return false
}

// CapacityReached reports whether the trial is full.
func (t *Trial) CapacityReached() bool {
	return t.ParticipantsEnrolled >= t.ParticipantsRequired
}

// Progress returns the trial's completion percentage as of now.
func (t *Trial) Progress(now time.Time) int {
	return CalculateProgress(t.PhaseDates, t.TotalPhases, now)
}

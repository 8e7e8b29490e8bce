// Package report flattens a trial and its enrolled participants into a
// display-ready projection. Rendering the projection into a document is the
// caller's concern.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/clintrack/clintrack/internal/domain/participant"
	"github.com/clintrack/clintrack/internal/domain/trial"
)

// ParticipantRow carries the participant fields a report displays.
type ParticipantRow struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	Mobile              string    `json:"mobile"`
	Gender              string    `json:"gender"`
	Age                 int       `json:"age"`
	ObesityCategory     string    `json:"obesity_category"`
	BPCategory          string    `json:"bp_category"`
	DiabetesStatus      string    `json:"diabetes_status"`
	HasAsthma           bool      `json:"has_asthma"`
	HasChronicIllnesses bool      `json:"has_chronic_illnesses"`
}

// Data is the denormalized report for one trial.
type Data struct {
	TrialID               uuid.UUID        `json:"trial_id"`
	Title                 string           `json:"title"`
	Description           string           `json:"description"`
	Category              string           `json:"category"`
	TotalPhases           int              `json:"total_phases"`
	Progress              int              `json:"progress"`
	ParticipantsRequired  int              `json:"participants_required"`
	ParticipantsEnrolled  int              `json:"participants_enrolled"`
	AdverseEventsReported int              `json:"adverse_events_reported"`
	AdverseEventsHigh     int              `json:"adverse_events_high"`
	AdverseEventsMedium   int              `json:"adverse_events_medium"`
	AdverseEventsLow      int              `json:"adverse_events_low"`
	NegativeImpacts       []int            `json:"negative_impacts"`
	PositiveImpacts       []int            `json:"positive_impacts"`
	GeneratedAt           time.Time        `json:"generated_at"`
	Participants          []ParticipantRow `json:"participants"`
}

// Project builds the report data for a trial and its enrolled participants.
// Pure: inputs are copied, never aliased or mutated.
func Project(t *trial.Trial, participants []*participant.Participant, now time.Time) *Data {
	rows := make([]ParticipantRow, 0, len(participants))
	for _, p := range participants {
		rows = append(rows, ParticipantRow{
			ID:                  p.ID,
			Name:                p.Name,
			Email:               p.Email,
			Mobile:              p.Mobile,
			Gender:              p.Gender,
			Age:                 p.Age(now),
			ObesityCategory:     p.ObesityCategory,
			BPCategory:          p.BPCategory,
			DiabetesStatus:      p.DiabetesStatus,
			HasAsthma:           p.HasAsthma,
			HasChronicIllnesses: p.HasChronicIllnesses,
		})
	}

	return &Data{
		TrialID:               t.ID,
		Title:                 t.Title,
		Description:           t.Description,
		Category:              t.Category,
		TotalPhases:           t.TotalPhases,
		Progress:              t.Progress(now),
		ParticipantsRequired:  t.ParticipantsRequired,
		ParticipantsEnrolled:  t.ParticipantsEnrolled,
		AdverseEventsReported: t.AdverseEventsReported,
		AdverseEventsHigh:     t.AdverseEventsHigh,
		AdverseEventsMedium:   t.AdverseEventsMedium,
		AdverseEventsLow:      t.AdverseEventsLow,
		NegativeImpacts:       append([]int(nil), t.NegativeImpacts...),
		PositiveImpacts:       append([]int(nil), t.PositiveImpacts...),
		GeneratedAt:           now,
		Participants:          rows,
	}
}

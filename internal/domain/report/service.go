package report

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clintrack/clintrack/internal/domain/participant"
	"github.com/clintrack/clintrack/internal/domain/trial"
)

type Service struct {
	trials trial.Repository
	people participant.Repository
	now    func() time.Time
}

func NewService(trials trial.Repository, people participant.Repository) *Service {
	return &Service{trials: trials, people: people, now: time.Now}
}

// Generate assembles the report for one trial by resolving every enrolled
// participant and projecting the result. A participant id the trial still
// carries but whose record is gone is skipped rather than failing the whole
// report.
func (s *Service) Generate(ctx context.Context, trialID uuid.UUID) (*Data, error) {
	t, err := s.trials.GetByID(ctx, trialID)
	if err != nil {
		return nil, err
	}

	participants := make([]*participant.Participant, 0, len(t.ParticipantIDs))
	for _, pid := range t.ParticipantIDs {
		p, err := s.people.GetByID(ctx, pid)
		if err != nil {
			if err == participant.ErrNotFound {
				continue
			}
			return nil, err
		}
		participants = append(participants, p)
	}

	return Project(t, participants, s.now()), nil
}

package trial

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clintrack/clintrack/internal/domain/eligibility"
)

// ErrValidation tags input rejected by service-level checks so the HTTP
// layer can tell a bad request apart from a storage failure.
var ErrValidation = errors.New("invalid trial")

func invalidf(format string, args ...interface{}) error {
	args = append([]interface{}{ErrValidation}, args...)
	return fmt.Errorf("%w: "+format, args...)
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

var validCriteriaGenders = map[string]bool{
	"": true, eligibility.Any: true, "MALE": true, "FEMALE": true,
}

var validCriteriaObesity = map[string]bool{
	eligibility.Any: true, "UNDERWEIGHT": true, "NORMAL": true, "OVERWEIGHT": true, "OBESE": true,
}

var validCriteriaBP = map[string]bool{
	eligibility.Any: true, "LOW": true, "NORMAL": true, "HIGH": true,
}

var validCriteriaDiabetes = map[string]bool{
	eligibility.Any: true, "NONE": true, "TYPE1": true, "TYPE2": true, "GESTATIONAL": true,
}

func (s *Service) Create(ctx context.Context, t *Trial) error {
	if err := s.validate(t); err != nil {
		return err
	}
	t.ParticipantsEnrolled = 0
	t.ParticipantIDs = nil
	if t.NegativeImpacts == nil {
		t.NegativeImpacts = []int{}
	}
	if t.PositiveImpacts == nil {
		t.PositiveImpacts = []int{}
	}
	return s.repo.Create(ctx, t)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Trial, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, t *Trial) error {
	existing, err := s.repo.GetByID(ctx, t.ID)
	if err != nil {
		return err
	}
	if err := s.validate(t); err != nil {
		return err
	}
	if t.ParticipantsRequired < existing.ParticipantsEnrolled {
		return invalidf("participants_required cannot drop below the %d already enrolled", existing.ParticipantsEnrolled)
	}
	return s.repo.Update(ctx, t)
}

// RecordEvents replaces the trial's adverse-event counters and impact series.
func (s *Service) RecordEvents(ctx context.Context, t *Trial) error {
	if _, err := s.repo.GetByID(ctx, t.ID); err != nil {
		return err
	}
	if t.AdverseEventsReported < 0 || t.AdverseEventsHigh < 0 || t.AdverseEventsMedium < 0 || t.AdverseEventsLow < 0 {
		return invalidf("adverse-event counters must be non-negative")
	}
	if t.AdverseEventsHigh+t.AdverseEventsMedium+t.AdverseEventsLow > t.AdverseEventsReported {
		return invalidf("severity counts exceed adverse_events_reported")
	}
	for _, v := range t.NegativeImpacts {
		if v < 0 {
			return invalidf("negative_impacts entries must be non-negative")
		}
	}
	for _, v := range t.PositiveImpacts {
		if v < 0 {
			return invalidf("positive_impacts entries must be non-negative")
		}
	}
	return s.repo.UpdateEvents(ctx, t)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, filters map[string]string, limit, offset int) ([]*Trial, int, error) {
	return s.repo.List(ctx, filters, limit, offset)
}

// Progress computes the trial's completion percentage as of now.
func (s *Service) Progress(ctx context.Context, id uuid.UUID) (int, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return t.Progress(s.now()), nil
}

func (s *Service) validate(t *Trial) error {
	if t.Title == "" {
		return invalidf("title is required")
	}
	if t.TotalPhases <= 0 {
		return invalidf("total_phases must be positive")
	}
	if t.ParticipantsRequired <= 0 {
		return invalidf("participants_required must be positive")
	}
	for phase, raw := range t.PhaseDates {
		if phase < 1 || phase > t.TotalPhases {
			return invalidf("phase_dates key %d is outside 1..%d", phase, t.TotalPhases)
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if _, err := time.Parse(PhaseDateFormat, raw); err != nil {
			return invalidf("phase %d has malformed date %q", phase, raw)
		}
	}
	return s.validateCriteria(t.Criteria)
}

func (s *Service) validateCriteria(c eligibility.Criteria) error {
	if !validCriteriaGenders[c.Gender] {
		return invalidf("invalid criteria gender: %s", c.Gender)
	}
	if c.MinAge != nil && *c.MinAge < 0 {
		return invalidf("min_age must be non-negative")
	}
	if c.ObesityCategory != nil && !validCriteriaObesity[*c.ObesityCategory] {
		return invalidf("invalid criteria obesity_category: %s", *c.ObesityCategory)
	}
	if c.BPCategory != nil && !validCriteriaBP[*c.BPCategory] {
		return invalidf("invalid criteria bp_category: %s", *c.BPCategory)
	}
	if c.DiabetesStatus != nil && !validCriteriaDiabetes[*c.DiabetesStatus] {
		return invalidf("invalid criteria diabetes_status: %s", *c.DiabetesStatus)
	}
	return nil
}

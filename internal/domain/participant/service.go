package participant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrValidation tags input rejected by service-level checks so the HTTP
// layer can tell a bad request apart from a storage failure.
var ErrValidation = errors.New("invalid participant")

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

var validGenders = map[string]bool{"MALE": true, "FEMALE": true}

var validObesityCategories = map[string]bool{
	"UNDERWEIGHT": true, "NORMAL": true, "OVERWEIGHT": true, "OBESE": true,
}

var validBPCategories = map[string]bool{
	"LOW": true, "NORMAL": true, "HIGH": true,
}

var validDiabetesStatuses = map[string]bool{
	"NONE": true, "TYPE1": true, "TYPE2": true, "GESTATIONAL": true,
}

func (s *Service) Register(ctx context.Context, p *Participant) error {
	if p.Name == "" {
		return invalidf("name is required")
	}
	if p.Email == "" || !strings.Contains(p.Email, "@") {
		return invalidf("a valid email is required")
	}
	if p.DateOfBirth.IsZero() {
		return invalidf("date_of_birth is required")
	}
	if p.DateOfBirth.After(s.now()) {
		return invalidf("date_of_birth cannot be in the future")
	}
	if !validGenders[p.Gender] {
		return invalidf("invalid gender: %s", p.Gender)
	}
	if p.ObesityCategory == "" {
		p.ObesityCategory = "NORMAL"
	}
	if !validObesityCategories[p.ObesityCategory] {
		return invalidf("invalid obesity_category: %s", p.ObesityCategory)
	}
	if p.BPCategory == "" {
		p.BPCategory = "NORMAL"
	}
	if !validBPCategories[p.BPCategory] {
		return invalidf("invalid bp_category: %s", p.BPCategory)
	}
	if p.DiabetesStatus == "" {
		p.DiabetesStatus = "NONE"
	}
	if !validDiabetesStatuses[p.DiabetesStatus] {
		return invalidf("invalid diabetes_status: %s", p.DiabetesStatus)
	}
	if p.Role == "" {
		p.Role = RoleParticipant
	}
	if p.Role != RoleParticipant && p.Role != RoleAdmin {
		return invalidf("invalid role: %s", p.Role)
	}
	if existing, err := s.repo.GetByEmail(ctx, p.Email); err == nil && existing != nil {
		return invalidf("email %s is already registered", p.Email)
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Participant, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*Participant, error) {
	return s.repo.GetByEmail(ctx, email)
}

// Update changes contact details only; the medical profile recorded at
// registration stays fixed so past eligibility decisions remain explainable.
func (s *Service) Update(ctx context.Context, p *Participant) error {
	existing, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if p.Name == "" {
		return invalidf("name is required")
	}
	if p.Role == "" {
		p.Role = existing.Role
	}
	if p.Role != RoleParticipant && p.Role != RoleAdmin {
		return invalidf("invalid role: %s", p.Role)
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Participant, int, error) {
	return s.repo.List(ctx, limit, offset)
}

package participant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	data map[uuid.UUID]*Participant
}

func newMockRepo() *mockRepo {
	return &mockRepo{data: map[uuid.UUID]*Participant{}}
}

func (m *mockRepo) Create(_ context.Context, p *Participant) error {
	p.ID = uuid.New()
	m.data[p.ID] = p
	return nil
}
func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Participant, error) {
	if p, ok := m.data[id]; ok {
		return p, nil
	}
	return nil, ErrNotFound
}
func (m *mockRepo) GetByEmail(_ context.Context, email string) (*Participant, error) {
	for _, p := range m.data {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, ErrNotFound
}
func (m *mockRepo) Update(_ context.Context, p *Participant) error {
	if _, ok := m.data[p.ID]; !ok {
		return ErrNotFound
	}
	m.data[p.ID] = p
	return nil
}
func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.data, id)
	return nil
}
func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Participant, int, error) {
	var out []*Participant
	for _, p := range m.data {
		out = append(out, p)
	}
	return out, len(out), nil
}

func validParticipant() *Participant {
	return &Participant{
		Name:        "Jane Doe",
		Email:       "jane@example.com",
		Mobile:      "555-0100",
		DateOfBirth: time.Date(1985, 5, 20, 0, 0, 0, 0, time.UTC),
		Gender:      "FEMALE",
	}
}

func newTestService(repo Repository) *Service {
	s := NewService(repo)
	s.now = func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestRegister_DefaultsAndSuccess(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	p := validParticipant()
	if err := svc.Register(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected ID to be assigned")
	}
	if p.Role != RoleParticipant {
		t.Errorf("expected default role %q, got %q", RoleParticipant, p.Role)
	}
	if p.ObesityCategory != "NORMAL" || p.BPCategory != "NORMAL" || p.DiabetesStatus != "NONE" {
		t.Errorf("expected profile defaults, got %s/%s/%s", p.ObesityCategory, p.BPCategory, p.DiabetesStatus)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestService(newMockRepo())

	cases := []struct {
		name    string
		mutate  func(*Participant)
		wantErr string
	}{
		{"missing name", func(p *Participant) { p.Name = "" }, "name"},
		{"bad email", func(p *Participant) { p.Email = "not-an-email" }, "email"},
		{"missing dob", func(p *Participant) { p.DateOfBirth = time.Time{} }, "date_of_birth"},
		{"future dob", func(p *Participant) { p.DateOfBirth = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }, "future"},
		{"bad gender", func(p *Participant) { p.Gender = "OTHER" }, "gender"},
		{"bad obesity", func(p *Participant) { p.ObesityCategory = "HUGE" }, "obesity"},
		{"bad bp", func(p *Participant) { p.BPCategory = "EXTREME" }, "bp_category"},
		{"bad diabetes", func(p *Participant) { p.DiabetesStatus = "MAYBE" }, "diabetes"},
		{"bad role", func(p *Participant) { p.Role = "superuser" }, "role"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validParticipant()
			tc.mutate(p)
			err := svc.Register(context.Background(), p)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error mentioning %q, got %q", tc.wantErr, err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	if err := svc.Register(context.Background(), validParticipant()); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	err := svc.Register(context.Background(), validParticipant())
	if err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Errorf("expected duplicate email error, got %v", err)
	}
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc := newTestService(newMockRepo())
	err := svc.Update(context.Background(), &Participant{ID: uuid.New(), Name: "X"})
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdate_KeepsRole(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	p := validParticipant()
	p.Role = RoleAdmin
	if err := svc.Register(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	upd := &Participant{ID: p.ID, Name: "Jane Q. Doe"}
	if err := svc.Update(context.Background(), upd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if upd.Role != RoleAdmin {
		t.Errorf("expected role preserved, got %q", upd.Role)
	}
}

func TestParticipant_Age(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	p := &Participant{DateOfBirth: time.Date(1990, 6, 16, 0, 0, 0, 0, time.UTC)}
	if got := p.Age(now); got != 33 {
		t.Errorf("day before birthday: expected 33, got %d", got)
	}
	p.DateOfBirth = time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)
	if got := p.Age(now); got != 34 {
		t.Errorf("on birthday: expected 34, got %d", got)
	}
}

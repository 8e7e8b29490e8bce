package trial

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clintrack/clintrack/internal/domain/eligibility"
)

type mockRepo struct {
	data map[uuid.UUID]*Trial
}

func newMockRepo() *mockRepo {
	return &mockRepo{data: map[uuid.UUID]*Trial{}}
}

func (m *mockRepo) Create(_ context.Context, t *Trial) error {
	t.ID = uuid.New()
	m.data[t.ID] = t
	return nil
}
func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Trial, error) {
	if t, ok := m.data[id]; ok {
		return t, nil
	}
	return nil, ErrNotFound
}
func (m *mockRepo) Update(_ context.Context, t *Trial) error {
	existing, ok := m.data[t.ID]
	if !ok {
		return ErrNotFound
	}
	t.ParticipantsEnrolled = existing.ParticipantsEnrolled
	t.ParticipantIDs = existing.ParticipantIDs
	m.data[t.ID] = t
	return nil
}
func (m *mockRepo) UpdateEvents(_ context.Context, t *Trial) error {
	existing, ok := m.data[t.ID]
	if !ok {
		return ErrNotFound
	}
	existing.AdverseEventsReported = t.AdverseEventsReported
	existing.AdverseEventsHigh = t.AdverseEventsHigh
	existing.AdverseEventsMedium = t.AdverseEventsMedium
	existing.AdverseEventsLow = t.AdverseEventsLow
	existing.NegativeImpacts = t.NegativeImpacts
	existing.PositiveImpacts = t.PositiveImpacts
	return nil
}
func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.data, id)
	return nil
}
func (m *mockRepo) List(_ context.Context, filters map[string]string, limit, offset int) ([]*Trial, int, error) {
	var out []*Trial
	for _, t := range m.data {
		if title, ok := filters["title"]; ok && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(title)) {
			continue
		}
		if category, ok := filters["category"]; ok && t.Category != category {
			continue
		}
		out = append(out, t)
	}
	return out, len(out), nil
}
func (m *mockRepo) EnrollParticipant(_ context.Context, trialID, participantID uuid.UUID, expectedEnrolled int) error {
	t, ok := m.data[trialID]
	if !ok {
		return ErrConflict
	}
	if t.ParticipantsEnrolled != expectedEnrolled || t.CapacityReached() || t.HasParticipant(participantID) {
		return ErrConflict
	}
	t.ParticipantIDs = append(t.ParticipantIDs, participantID)
	t.ParticipantsEnrolled++
	return nil
}
func (m *mockRepo) WithdrawParticipant(_ context.Context, trialID, participantID uuid.UUID, expectedEnrolled int) error {
	t, ok := m.data[trialID]
	if !ok {
		return ErrConflict
	}
	if t.ParticipantsEnrolled != expectedEnrolled || !t.HasParticipant(participantID) {
		return ErrConflict
	}
	var kept []uuid.UUID
	for _, id := range t.ParticipantIDs {
		if id != participantID {
			kept = append(kept, id)
		}
	}
	t.ParticipantIDs = kept
	t.ParticipantsEnrolled--
	return nil
}

func validTrial() *Trial {
	return &Trial{
		Title:                "Hypertension Phase II",
		Category:             "cardiology",
		TotalPhases:          3,
		PhaseDates:           map[int]string{1: "2024-01-01"},
		ParticipantsRequired: 10,
	}
}

func newTestService(repo Repository) *Service {
	s := NewService(repo)
	s.now = func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestCreate_Success(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	tr := validTrial()
	tr.ParticipantsEnrolled = 7 // client-supplied counters are ignored
	if err := svc.Create(context.Background(), tr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.ParticipantsEnrolled != 0 || len(tr.ParticipantIDs) != 0 {
		t.Error("expected enrollment state reset on create")
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService(newMockRepo())
	obesity := "HUGE"

	cases := []struct {
		name    string
		mutate  func(*Trial)
		wantErr string
	}{
		{"missing title", func(tr *Trial) { tr.Title = "" }, "title"},
		{"zero phases", func(tr *Trial) { tr.TotalPhases = 0 }, "total_phases"},
		{"zero capacity", func(tr *Trial) { tr.ParticipantsRequired = 0 }, "participants_required"},
		{"phase key out of range", func(tr *Trial) { tr.PhaseDates[9] = "2024-01-01" }, "outside"},
		{"malformed phase date", func(tr *Trial) { tr.PhaseDates[2] = "01/02/2024" }, "malformed"},
		{"bad criteria gender", func(tr *Trial) { tr.Criteria.Gender = "OTHER" }, "gender"},
		{"negative min age", func(tr *Trial) { age := -1; tr.Criteria.MinAge = &age }, "min_age"},
		{"bad criteria obesity", func(tr *Trial) { tr.Criteria.ObesityCategory = &obesity }, "obesity"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := validTrial()
			tc.mutate(tr)
			err := svc.Create(context.Background(), tr)
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

func TestList_TitleAndCategoryFilters(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	cardio := validTrial() // "Hypertension Phase II" / cardiology
	asthma := validTrial()
	asthma.Title = "Asthma Inhaler Study"
	asthma.Category = "pulmonology"
	for _, tr := range []*Trial{cardio, asthma} {
		if err := svc.Create(context.Background(), tr); err != nil {
			t.Fatal(err)
		}
	}

	items, total, err := svc.List(context.Background(), map[string]string{"title": "asthma"}, 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != asthma.ID {
		t.Errorf("title filter: expected only the asthma trial, got %d items", len(items))
	}

	items, _, err = svc.List(context.Background(), map[string]string{"category": "cardiology"}, 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != cardio.ID {
		t.Errorf("category filter: expected only the cardiology trial, got %d items", len(items))
	}

	items, _, err = svc.List(context.Background(), map[string]string{"title": "asthma", "category": "cardiology"}, 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("combined filters: expected no matches, got %d", len(items))
	}

	items, _, err = svc.List(context.Background(), map[string]string{}, 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Errorf("no filters: expected both trials, got %d", len(items))
	}
}

func TestCreate_BlankPhaseDatesAllowed(t *testing.T) {
	svc := newTestService(newMockRepo())
	tr := validTrial()
	tr.PhaseDates = map[int]string{1: "", 2: "  ", 3: "2024-09-01"}
	if err := svc.Create(context.Background(), tr); err != nil {
		t.Fatalf("blank phase dates should be allowed: %v", err)
	}
}

func TestCreate_AnyCriteriaAllowed(t *testing.T) {
	svc := newTestService(newMockRepo())
	tr := validTrial()
	any := eligibility.Any
	tr.Criteria = eligibility.Criteria{
		Gender:          eligibility.Any,
		ObesityCategory: &any,
		BPCategory:      &any,
		DiabetesStatus:  &any,
	}
	if err := svc.Create(context.Background(), tr); err != nil {
		t.Fatalf("ANY criteria should be valid: %v", err)
	}
}

func TestUpdate_CannotShrinkBelowEnrolled(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	tr := validTrial()
	if err := svc.Create(context.Background(), tr); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := repo.EnrollParticipant(context.Background(), tr.ID, uuid.New(), i); err != nil {
			t.Fatal(err)
		}
	}

	upd := validTrial()
	upd.ID = tr.ID
	upd.ParticipantsRequired = 2
	err := svc.Update(context.Background(), upd)
	if err == nil || !strings.Contains(err.Error(), "already enrolled") {
		t.Errorf("expected shrink-below-enrolled error, got %v", err)
	}
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestRecordEvents_SeverityBound(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	tr := validTrial()
	if err := svc.Create(context.Background(), tr); err != nil {
		t.Fatal(err)
	}

	upd := &Trial{ID: tr.ID, AdverseEventsReported: 5, AdverseEventsHigh: 2, AdverseEventsMedium: 2, AdverseEventsLow: 2}
	err := svc.RecordEvents(context.Background(), upd)
	if err == nil || !strings.Contains(err.Error(), "exceed") {
		t.Errorf("expected severity bound error, got %v", err)
	}

	// High+Medium+Low below Reported is allowed.
	upd.AdverseEventsLow = 1
	if err := svc.RecordEvents(context.Background(), upd); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRecordEvents_NegativeValuesRejected(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	tr := validTrial()
	if err := svc.Create(context.Background(), tr); err != nil {
		t.Fatal(err)
	}

	upd := &Trial{ID: tr.ID, NegativeImpacts: []int{3, -1}}
	if err := svc.RecordEvents(context.Background(), upd); err == nil {
		t.Error("expected error for negative impact entry")
	}
	upd = &Trial{ID: tr.ID, AdverseEventsReported: -1}
	if err := svc.RecordEvents(context.Background(), upd); err == nil {
		t.Error("expected error for negative counter")
	}
}

func TestProgress_UsesInjectedClock(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo) // now = 2024-06-15

	tr := validTrial()
	tr.TotalPhases = 2
	tr.PhaseDates = map[int]string{1: "2023-01-01", 2: "2099-01-01"}
	if err := svc.Create(context.Background(), tr); err != nil {
		t.Fatal(err)
	}
	pct, err := svc.Progress(context.Background(), tr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if pct != 50 {
		t.Errorf("expected 50, got %d", pct)
	}
}

func TestMockRepo_EnrollCAS(t *testing.T) {
	repo := newMockRepo()
	tr := validTrial()
	tr.ParticipantsRequired = 1
	if err := repo.Create(context.Background(), tr); err != nil {
		t.Fatal(err)
	}

	pid := uuid.New()
	if err := repo.EnrollParticipant(context.Background(), tr.ID, pid, 0); err != nil {
		t.Fatalf("first enroll failed: %v", err)
	}
	// Stale expected counter must conflict.
	if err := repo.EnrollParticipant(context.Background(), tr.ID, uuid.New(), 0); err != ErrConflict {
		t.Errorf("expected ErrConflict on stale counter, got %v", err)
	}
	// Withdraw restores capacity.
	if err := repo.WithdrawParticipant(context.Background(), tr.ID, pid, 1); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if tr.ParticipantsEnrolled != 0 || tr.HasParticipant(pid) {
		t.Error("expected participant removed and counter decremented")
	}
}

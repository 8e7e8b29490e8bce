package enrollment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clintrack/clintrack/internal/domain/eligibility"
	"github.com/clintrack/clintrack/internal/platform/auth"
)

func authedContext(e *echo.Echo, method, target, body, subject string, roles []string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := context.WithValue(req.Context(), auth.UserIDKey, subject)
	ctx = context.WithValue(ctx, auth.UserRolesKey, roles)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func identity(subject string, roles []string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := context.WithValue(c.Request().Context(), auth.UserIDKey, subject)
			ctx = context.WithValue(ctx, auth.UserRolesKey, roles)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func TestSubmitHandler_EnrollsSessionSubject(t *testing.T) {
	f := newFixture()
	tr := f.addTrial(5, eligibility.Criteria{})
	p := f.addParticipant()
	h := NewHandler(f.wf)

	body := fmt.Sprintf(`{"trial_id":%q}`, tr.ID)
	c, rec := authedContext(echo.New(), http.MethodPost, "/api/v1/enrollment-requests", body,
		p.ID.String(), []string{"participant"})

	if err := h.Submit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var created Request
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.ParticipantID != p.ID {
		t.Errorf("expected request bound to the session subject %s, got %s", p.ID, created.ParticipantID)
	}
}

func TestSubmitHandler_OtherParticipantForbidden(t *testing.T) {
	f := newFixture()
	tr := f.addTrial(5, eligibility.Criteria{})
	victim := f.addParticipant()
	h := NewHandler(f.wf)

	body := fmt.Sprintf(`{"trial_id":%q,"participant_id":%q}`, tr.ID, victim.ID)
	c, _ := authedContext(echo.New(), http.MethodPost, "/api/v1/enrollment-requests", body,
		uuid.NewString(), []string{"participant"})

	err := h.Submit(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403 submitting for someone else, got %v", err)
	}
	if len(f.requests.data) != 0 {
		t.Error("expected no request created")
	}
}

func TestSubmitHandler_AdminMayActOnBehalf(t *testing.T) {
	f := newFixture()
	tr := f.addTrial(5, eligibility.Criteria{})
	p := f.addParticipant()
	h := NewHandler(f.wf)

	body := fmt.Sprintf(`{"trial_id":%q,"participant_id":%q}`, tr.ID, p.ID)
	c, rec := authedContext(echo.New(), http.MethodPost, "/api/v1/enrollment-requests", body,
		"coordinator-1", []string{"admin"})

	if err := h.Submit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestWithdrawHandler_OwnerOnly(t *testing.T) {
	f := newFixture()
	tr := f.addTrial(5, eligibility.Criteria{})
	p := f.addParticipant()
	h := NewHandler(f.wf)

	req, err := f.wf.Submit(context.Background(), tr.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}

	e := echo.New()
	c, _ := authedContext(e, http.MethodDelete, "/api/v1/enrollment-requests/"+req.ID.String(), "",
		uuid.NewString(), []string{"participant"})
	c.SetParamNames("id")
	c.SetParamValues(req.ID.String())
	herr := h.Withdraw(c)
	he, ok := herr.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403 withdrawing someone else's request, got %v", herr)
	}

	c, rec := authedContext(e, http.MethodDelete, "/api/v1/enrollment-requests/"+req.ID.String(), "",
		p.ID.String(), []string{"participant"})
	c.SetParamNames("id")
	c.SetParamValues(req.ID.String())
	if err := h.Withdraw(c); err != nil {
		t.Fatalf("owner withdraw failed: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestGetHandler_OwnerOnly(t *testing.T) {
	f := newFixture()
	tr := f.addTrial(5, eligibility.Criteria{})
	p := f.addParticipant()
	h := NewHandler(f.wf)

	req, err := f.wf.Submit(context.Background(), tr.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}

	c, _ := authedContext(echo.New(), http.MethodGet, "/api/v1/enrollment-requests/"+req.ID.String(), "",
		uuid.NewString(), []string{"participant"})
	c.SetParamNames("id")
	c.SetParamValues(req.ID.String())
	herr := h.Get(c)
	he, ok := herr.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403 reading someone else's request, got %v", herr)
	}
}

func TestEligibilityHandler_ChecksSessionSubject(t *testing.T) {
	f := newFixture()
	tr := f.addTrial(5, eligibility.Criteria{})
	p := f.addParticipant()
	h := NewHandler(f.wf)

	c, rec := authedContext(echo.New(), http.MethodGet, "/api/v1/trials/"+tr.ID.String()+"/eligibility", "",
		p.ID.String(), []string{"participant"})
	c.SetParamNames("id")
	c.SetParamValues(tr.ID.String())
	if err := h.CheckEligibility(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	// A non-admin cannot check eligibility for an arbitrary participant.
	other := f.addParticipant()
	c, _ = authedContext(echo.New(), http.MethodGet,
		"/api/v1/trials/"+tr.ID.String()+"/eligibility?participant_id="+other.ID.String(), "",
		p.ID.String(), []string{"participant"})
	c.SetParamNames("id")
	c.SetParamValues(tr.ID.String())
	err := h.CheckEligibility(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestListRoute_RequiresAdmin(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.wf)

	serve := func(subject string, roles []string) *httptest.ResponseRecorder {
		e := echo.New()
		g := e.Group("/api/v1", identity(subject, roles))
		h.RegisterRoutes(g)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/enrollment-requests?trial_id="+uuid.NewString(), nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	if rec := serve(uuid.NewString(), []string{"participant"}); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin, got %d", rec.Code)
	}
	if rec := serve("coordinator-1", []string{"admin"}); rec.Code != http.StatusOK {
		t.Errorf("expected 200 for admin, got %d", rec.Code)
	}
}

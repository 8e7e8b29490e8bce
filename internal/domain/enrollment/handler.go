package enrollment

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clintrack/clintrack/internal/domain/participant"
	"github.com/clintrack/clintrack/internal/domain/trial"
	"github.com/clintrack/clintrack/internal/platform/auth"
	"github.com/clintrack/clintrack/pkg/pagination"
)

type Handler struct {
	wf *Workflow
}

func NewHandler(wf *Workflow) *Handler {
	return &Handler{wf: wf}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/enrollment-requests", h.Submit)
	api.GET("/enrollment-requests/:id", h.Get)
	api.DELETE("/enrollment-requests/:id", h.Withdraw)
	api.GET("/trials/:id/eligibility", h.CheckEligibility)

	adminGroup := api.Group("", auth.RequireRole("admin"))
	adminGroup.GET("/enrollment-requests", h.List)
	adminGroup.POST("/enrollment-requests/:id/approve", h.Approve)
	adminGroup.POST("/enrollment-requests/:id/reject", h.Reject)
}

// callerID parses the authenticated subject as a participant id. Token
// subjects for participant accounts carry their participant id.
func callerID(c echo.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	return id, err == nil
}

func isAdmin(c echo.Context) bool {
	for _, r := range auth.RolesFromContext(c.Request().Context()) {
		if r == "admin" {
			return true
		}
	}
	return false
}

type submitBody struct {
	TrialID uuid.UUID `json:"trial_id"`
	// ParticipantID is accepted from admins acting on someone's behalf;
	// everyone else enrolls as the session subject.
	ParticipantID uuid.UUID `json:"participant_id"`
}

func (h *Handler) Submit(c echo.Context) error {
	var body submitBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.TrialID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "trial_id is required")
	}

	caller, hasCaller := callerID(c)
	participantID := body.ParticipantID
	switch {
	case participantID == uuid.Nil:
		if !hasCaller {
			return echo.NewHTTPError(http.StatusBadRequest, "participant_id is required")
		}
		participantID = caller
	case !isAdmin(c) && (!hasCaller || caller != participantID):
		return echo.NewHTTPError(http.StatusForbidden, "cannot submit a request for another participant")
	}

	req, err := h.wf.Submit(c.Request().Context(), body.TrialID, participantID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	req, err := h.wf.Get(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	if !isAdmin(c) {
		caller, ok := callerID(c)
		if !ok || caller != req.ParticipantID {
			return echo.NewHTTPError(http.StatusForbidden, "not your enrollment request")
		}
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	status := c.QueryParam("status")
	if status != "" && status != StatusPending && status != StatusApproved && status != StatusRejected {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid status filter")
	}

	if trialID := c.QueryParam("trial_id"); trialID != "" {
		tid, err := uuid.Parse(trialID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid trial_id")
		}
		items, total, err := h.wf.ListByTrial(c.Request().Context(), tid, status, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}
	if participantID := c.QueryParam("participant_id"); participantID != "" {
		pid, err := uuid.Parse(participantID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid participant_id")
		}
		items, total, err := h.wf.ListByParticipant(c.Request().Context(), pid, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}
	return echo.NewHTTPError(http.StatusBadRequest, "trial_id or participant_id query parameter is required")
}

func (h *Handler) Approve(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	req, err := h.wf.Approve(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) Reject(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	req, err := h.wf.Reject(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) Withdraw(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	req, err := h.wf.Get(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	if !isAdmin(c) {
		caller, ok := callerID(c)
		if !ok || caller != req.ParticipantID {
			return echo.NewHTTPError(http.StatusForbidden, "not your enrollment request")
		}
	}
	if err := h.wf.Withdraw(c.Request().Context(), id); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CheckEligibility(c echo.Context) error {
	trialID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	// The check runs against the calling participant; admins may name
	// someone else with the participant_id query parameter.
	participantID, hasCaller := callerID(c)
	if q := c.QueryParam("participant_id"); q != "" {
		qid, err := uuid.Parse(q)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid participant_id")
		}
		if !isAdmin(c) && (!hasCaller || participantID != qid) {
			return echo.NewHTTPError(http.StatusForbidden, "cannot check eligibility for another participant")
		}
		participantID = qid
	} else if !hasCaller {
		return echo.NewHTTPError(http.StatusBadRequest, "participant_id is required")
	}

	result, err := h.wf.CheckEligibility(c.Request().Context(), trialID, participantID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// mapError translates workflow outcomes to HTTP responses. Eligibility
// failures carry their reasons in the body.
func mapError(err error) error {
	var notEligible *NotEligibleError
	switch {
	case errors.As(err, &notEligible):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]interface{}{
			"message": "participant is not eligible",
			"reasons": notEligible.Reasons,
		})
	case errors.Is(err, ErrRequestNotFound),
		errors.Is(err, trial.ErrNotFound),
		errors.Is(err, participant.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicateRequest),
		errors.Is(err, ErrAlreadyEnrolledElsewhere),
		errors.Is(err, ErrCapacityReached),
		errors.Is(err, ErrInvalidStateTransition),
		errors.Is(err, ErrConcurrentModification):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// Package alertapi exposes the HTTP surface for submitting alerts and
// steering cases through the workflow.
package alertapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/quaylabs/foghorn/internal/workflow"
)

// CaseService defines the business operations alertapi needs.
type CaseService interface {
	Start(ctx context.Context, alertText, caseID string) (*workflow.State, error)
	Approve(ctx context.Context, caseID string) (*workflow.State, error)
	Reject(ctx context.Context, caseID, reason string) (*workflow.State, error)
	Status(ctx context.Context, caseID string) (*workflow.State, error)
	List(ctx context.Context, limit int) ([]*workflow.State, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    CaseService
}

// New creates a new API handler.
func New(logger log.Logger, svc CaseService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("case service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/alerts", a.handleSubmitAlert)
		r.Get("/cases", a.handleListCases)
		r.Get("/cases/{id}", a.handleGetCase)
		r.Post("/cases/{id}/approve", a.handleApprove)
		r.Post("/cases/{id}/reject", a.handleReject)
	})
}

type submitRequest struct {
	AlertText string `json:"alert_text"`
	CaseID    string `json:"case_id,omitempty"`
}

type reviewRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (a *API) handleSubmitAlert(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	st, err := a.svc.Start(r.Context(), req.AlertText, req.CaseID)
	if err != nil {
		a.writeServiceError(w, r, err, "failed to start case")
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("foghorn.case.id", st.Case.ID),
		attribute.String("foghorn.case.status", string(st.Status)),
	)

	writeState(w, http.StatusAccepted, st)
}

func (a *API) handleGetCase(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("foghorn.case.id", id))

	st, err := a.svc.Status(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, r, err, "failed to get case")
		return
	}

	span.SetAttributes(attribute.String("foghorn.case.status", string(st.Status)))

	writeState(w, http.StatusOK, st)
}

func (a *API) handleListCases(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}

	states, err := a.svc.List(r.Context(), limit)
	if err != nil {
		a.writeServiceError(w, r, err, "failed to list cases")
		return
	}
	if states == nil {
		states = []*workflow.State{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"cases": states})
}

func (a *API) handleApprove(w http.ResponseWriter, r *http.Request) {
	a.handleReview(w, r, true)
}

func (a *API) handleReject(w http.ResponseWriter, r *http.Request) {
	a.handleReview(w, r, false)
}

func (a *API) handleReview(w http.ResponseWriter, r *http.Request, approved bool) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("foghorn.case.id", id))

	var req reviewRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
			return
		}
	}

	var (
		st  *workflow.State
		err error
	)
	if approved {
		st, err = a.svc.Approve(r.Context(), id)
	} else {
		st, err = a.svc.Reject(r.Context(), id, req.Reason)
	}
	if err != nil {
		a.writeServiceError(w, r, err, "failed to apply review decision")
		return
	}

	span.SetAttributes(attribute.String("foghorn.case.status", string(st.Status)))

	writeState(w, http.StatusOK, st)
}

// writeServiceError maps workflow sentinel errors to HTTP statuses.
func (a *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, workflow.ErrEmptyAlert):
		http.Error(w, `{"error":"alert_text is required"}`, http.StatusBadRequest)
	case errors.Is(err, workflow.ErrCaseNotFound):
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	case errors.Is(err, workflow.ErrCaseExists):
		http.Error(w, `{"error":"case already exists"}`, http.StatusConflict)
	case errors.Is(err, workflow.ErrNotAwaitingReview):
		http.Error(w, `{"error":"case is not awaiting review"}`, http.StatusConflict)
	default:
		a.logger.Error(r.Context(), err, msg)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}

func writeState(w http.ResponseWriter, status int, st *workflow.State) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(st)
}

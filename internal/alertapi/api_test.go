package alertapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"

	"github.com/quaylabs/foghorn/internal/workflow"
)

// mockService is a canned-response CaseService.
type mockService struct {
	states map[string]*workflow.State
}

func newMockService() *mockService {
	return &mockService{states: make(map[string]*workflow.State)}
}

func (m *mockService) Start(_ context.Context, alertText, caseID string) (*workflow.State, error) {
	if alertText == "" {
		return nil, workflow.ErrEmptyAlert
	}
	if caseID == "" {
		caseID = fmt.Sprintf("case-%d", len(m.states)+1)
	} else if _, ok := m.states[caseID]; ok {
		return nil, fmt.Errorf("%w: %s", workflow.ErrCaseExists, caseID)
	}
	st := workflow.NewState(caseID, alertText)
	st.ExecutionPath = []string{"triage"}
	m.states[caseID] = st
	return st, nil
}

func (m *mockService) Approve(_ context.Context, caseID string) (*workflow.State, error) {
	st, ok := m.states[caseID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", workflow.ErrCaseNotFound, caseID)
	}
	if !st.NeedsHumanReview {
		return nil, fmt.Errorf("%w: %s", workflow.ErrNotAwaitingReview, caseID)
	}
	st.NeedsHumanReview = false
	st.HumanApproved = true
	st.Status = workflow.StatusCompleted
	return st, nil
}

func (m *mockService) Reject(_ context.Context, caseID, reason string) (*workflow.State, error) {
	st, ok := m.states[caseID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", workflow.ErrCaseNotFound, caseID)
	}
	if !st.NeedsHumanReview {
		return nil, fmt.Errorf("%w: %s", workflow.ErrNotAwaitingReview, caseID)
	}
	st.NeedsHumanReview = false
	st.ReviewComment = reason
	st.Status = workflow.StatusCompleted
	return st, nil
}

func (m *mockService) Status(_ context.Context, caseID string) (*workflow.State, error) {
	st, ok := m.states[caseID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", workflow.ErrCaseNotFound, caseID)
	}
	return st, nil
}

func (m *mockService) List(_ context.Context, limit int) ([]*workflow.State, error) {
	out := make([]*workflow.State, 0, len(m.states))
	for _, st := range m.states {
		out = append(out, st)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newTestRouter(t *testing.T) (chi.Router, *mockService) {
	t.Helper()
	svc := newMockService()
	api := New(nil, svc)
	r := chi.NewRouter()
	api.RegisterRoutes(r)
	return r, svc
}

//  New / constructor

func TestNew_NilLogger(t *testing.T) {
	t.Parallel()

	api := New(nil, newMockService())
	if api == nil {
		t.Fatal("New(nil, svc) returned nil API")
	}
	if api.logger == nil {
		t.Fatal("New(nil, svc) left logger nil; expected Nop logger")
	}
}

func TestNew_WithLogger(t *testing.T) {
	t.Parallel()

	api := New(log.Nop(), newMockService())
	if api == nil {
		t.Fatal("New(logger, svc) returned nil API")
	}
}

func TestNew_NilService_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("New(nil, nil) did not panic; expected panic for nil service")
		}
	}()
	New(nil, nil)
}

// Routing

func TestRegisterRoutes_AlertSubmission(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
	}{
		{"POST valid alert", http.MethodPost, `{"alert_text":"ERROR: something broke"}`, http.StatusAccepted},
		{"POST invalid JSON", http.MethodPost, `{bad`, http.StatusBadRequest},
		{"POST empty alert text", http.MethodPost, `{"alert_text":""}`, http.StatusBadRequest},
		{"PUT not allowed", http.MethodPut, "", http.StatusMethodNotAllowed},
		{"DELETE not allowed", http.MethodDelete, "", http.StatusMethodNotAllowed},
		{"PATCH not allowed", http.MethodPatch, "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, "/api/v1/alerts", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("%s /api/v1/alerts = %d, want %d", tt.method, rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRegisterRoutes_NotFound(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	paths := []string{
		"/",
		"/api/v1",
		"/api/v2/alerts",
		"/api/v1/unknown",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != http.StatusNotFound {
				t.Errorf("GET %s = %d, want %d", path, rec.Code, http.StatusNotFound)
			}
		})
	}
}

// Submission logic

func TestHandleSubmitAlert_ReturnsState(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	body := `{"alert_text":"CRITICAL: Database connection failed"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}

	var st workflow.State
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if st.Case.ID == "" {
		t.Error("expected non-empty case_id in response")
	}
	if st.Case.AlertText != "CRITICAL: Database connection failed" {
		t.Errorf("alert_text = %q", st.Case.AlertText)
	}
}

func TestHandleSubmitAlert_DuplicateCaseID(t *testing.T) {
	t.Parallel()

	r, svc := newTestRouter(t)
	svc.states["dup-1"] = workflow.NewState("dup-1", "existing")

	body := `{"alert_text":"second submission","case_id":"dup-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

// Case retrieval

func TestHandleGetCase(t *testing.T) {
	t.Parallel()

	r, svc := newTestRouter(t)
	svc.states["01H5K3ABCDEFGHJKMNPQRS"] = workflow.NewState("01H5K3ABCDEFGHJKMNPQRS", "alert")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cases/01H5K3ABCDEFGHJKMNPQRS", http.NoBody)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var st workflow.State
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if st.Case.ID != "01H5K3ABCDEFGHJKMNPQRS" {
		t.Errorf("case_id = %q", st.Case.ID)
	}
}

func TestHandleGetCase_NotFound(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cases/missing", http.NoBody)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleListCases(t *testing.T) {
	t.Parallel()

	r, svc := newTestRouter(t)
	svc.states["c1"] = workflow.NewState("c1", "one")
	svc.states["c2"] = workflow.NewState("c2", "two")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cases", http.NoBody)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Cases []*workflow.State `json:"cases"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Cases) != 2 {
		t.Errorf("cases = %d, want 2", len(resp.Cases))
	}
}

func TestHandleListCases_InvalidLimit(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	for _, limit := range []string{"abc", "0", "-5"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cases?limit="+limit, http.NoBody)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%q: status = %d, want %d", limit, rec.Code, http.StatusBadRequest)
		}
	}
}

// Review decisions

func TestHandleApprove(t *testing.T) {
	t.Parallel()

	r, svc := newTestRouter(t)
	st := workflow.NewState("rev-1", "alert")
	st.NeedsHumanReview = true
	svc.states["rev-1"] = st

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cases/rev-1/approve", http.NoBody)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var got workflow.State
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !got.HumanApproved {
		t.Error("expected human_approved=true after approve")
	}
}

func TestHandleReject_RecordsReason(t *testing.T) {
	t.Parallel()

	r, svc := newTestRouter(t)
	st := workflow.NewState("rev-2", "alert")
	st.NeedsHumanReview = true
	svc.states["rev-2"] = st

	body := `{"reason":"false positive"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cases/rev-2/reject", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var got workflow.State
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ReviewComment != "false positive" {
		t.Errorf("review_comment = %q, want %q", got.ReviewComment, "false positive")
	}
}

func TestHandleReview_NotAwaiting(t *testing.T) {
	t.Parallel()

	r, svc := newTestRouter(t)
	svc.states["done-1"] = workflow.NewState("done-1", "alert") // not suspended

	for _, path := range []string{"/api/v1/cases/done-1/approve", "/api/v1/cases/done-1/reject"} {
		req := httptest.NewRequest(http.MethodPost, path, http.NoBody)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Errorf("POST %s = %d, want %d", path, rec.Code, http.StatusConflict)
		}
	}
}

func TestHandleReview_NotFound(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cases/missing/approve", http.NoBody)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

// Fuzz

func FuzzAlertSubmission(f *testing.F) {
	svc := newMockService()
	api := New(nil, svc)
	r := chi.NewRouter()
	api.RegisterRoutes(r)

	seeds := []struct {
		body        []byte
		contentType string
	}{
		{nil, ""},
		{[]byte(""), "application/json"},
		{[]byte("{}"), "application/json"},
		{[]byte(`{"alert_text":"ERROR: duplicate container CMAU1234567"}`), "application/json"},
		{[]byte(`{"alert_text":"x","case_id":"fuzz-1"}`), "application/json"},
		{[]byte("{invalid json"), "application/json"},
		{[]byte("\x00\x01\x02\xff\xfe"), "application/octet-stream"},
		{[]byte("<xml>not json</xml>"), "text/xml"},
		{[]byte(strings.Repeat("a", 10000)), "text/plain"},
	}
	for _, s := range seeds {
		f.Add(s.body, s.contentType)
	}

	f.Fuzz(func(t *testing.T, body []byte, contentType string) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts", strings.NewReader(string(body)))
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		rec := httptest.NewRecorder()

		// Must not panic
		r.ServeHTTP(rec, req)

		switch rec.Code {
		case http.StatusAccepted, http.StatusBadRequest, http.StatusConflict:
		default:
			t.Errorf("POST /api/v1/alerts with body len=%d content-type=%q = %d, want 202, 400, or 409",
				len(body), contentType, rec.Code)
		}
	})
}

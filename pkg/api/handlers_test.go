package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dev/bravebird/streamlit-keepalive-go/pkg/wake"
)

func TestHealth(t *testing.T) {
	h := NewHandlers(nil, nil, wake.DefaultAppURL)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	h.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestTriggerRunRejectsInvalidBody(t *testing.T) {
	h := NewHandlers(nil, nil, wake.DefaultAppURL)

	req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	h.TriggerRun(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHistoryEndpointsWithoutDatabase(t *testing.T) {
	h := NewHandlers(nil, nil, wake.DefaultAppURL)

	tests := []struct {
		name    string
		handler http.HandlerFunc
		target  string
	}{
		{name: "list runs", handler: h.ListRuns, target: "/api/runs"},
		{name: "get run", handler: h.GetRun, target: "/api/runs/some-id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rec := httptest.NewRecorder()

			tt.handler(rec, req)

			if rec.Code != http.StatusServiceUnavailable {
				t.Errorf("status = %d, want 503", rec.Code)
			}
		})
	}
}

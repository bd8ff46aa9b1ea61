// ABOUTME: Tests for health endpoints
// ABOUTME: Checks liveness, passing and failing readiness and routing
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	New().Healthz(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestReadyz(t *testing.T) {
	ok := Checker{Name: "audio", Check: func(context.Context) error { return nil }}
	bad := Checker{Name: "audio", Check: func(context.Context) error { return errors.New("no engine connected") }}

	tests := []struct {
		name       string
		checker    Checker
		wantStatus int
		wantCheck  string
	}{
		{"ready", ok, http.StatusOK, "ok"},
		{"not ready", bad, http.StatusServiceUnavailable, "fail: no engine connected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			New(tt.checker).Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body result
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode JSON: %v", err)
			}
			if body.Checks["audio"] != tt.wantCheck {
				t.Errorf("audio check = %q, want %q", body.Checks["audio"], tt.wantCheck)
			}
		})
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	New().Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
}

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChecker_Routes(t *testing.T) {
	tests := []struct {
		name       string
		chainOK    bool
		path       string
		wantStatus int
	}{
		{name: "healthy", chainOK: true, path: "/health", wantStatus: http.StatusOK},
		{name: "degraded", chainOK: false, path: "/health", wantStatus: http.StatusServiceUnavailable},
		{name: "ready", chainOK: true, path: "/ready", wantStatus: http.StatusOK},
		{name: "not ready", chainOK: false, path: "/ready", wantStatus: http.StatusServiceUnavailable},
		{name: "live regardless", chainOK: false, path: "/live", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker("test")
			c.RegisterCheck("chain", func(context.Context) (bool, string) {
				if tt.chainOK {
					return true, "active"
				}
				return false, "no chain connectivity"
			})

			rec := httptest.NewRecorder()
			c.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestChecker_HealthBody(t *testing.T) {
	c := NewChecker("v1")
	c.RegisterCheck("chain", func(context.Context) (bool, string) { return false, "down" })
	c.RegisterCheck("bridge", func(context.Context) (bool, string) { return true, "" })

	rec := httptest.NewRecorder()
	c.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var got Status
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Status != "degraded" || got.Version != "v1" {
		t.Fatalf("status = %+v", got)
	}
	if got.Checks["chain"].Message != "down" || !got.Checks["bridge"].Healthy {
		t.Fatalf("checks = %+v", got.Checks)
	}
	if names := c.Names(); len(names) != 2 || names[0] != "bridge" {
		t.Fatalf("Names = %v", names)
	}
}

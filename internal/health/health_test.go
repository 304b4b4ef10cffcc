package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrWong99/ostinato/internal/health"
)

func newProbeServer(t *testing.T, checks map[string]health.Check) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	health.New(checks).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func getProbe(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return resp.StatusCode, body
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	// Liveness never consults the checks.
	srv := newProbeServer(t, map[string]health.Check{
		"broken": func(context.Context) error { return errors.New("down") },
	})

	code, body := getProbe(t, srv.URL+"/healthz")
	if code != http.StatusOK {
		t.Fatalf("healthz: status %d", code)
	}
	if body["status"] != "ok" {
		t.Fatalf("healthz: body %v", body)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	t.Run("all checks pass", func(t *testing.T) {
		t.Parallel()
		srv := newProbeServer(t, map[string]health.Check{
			"database": func(context.Context) error { return nil },
			"discord":  func(context.Context) error { return nil },
		})

		code, body := getProbe(t, srv.URL+"/readyz")
		if code != http.StatusOK {
			t.Fatalf("readyz: status %d", code)
		}
		checks := body["checks"].(map[string]any)
		if checks["database"] != "ok" || checks["discord"] != "ok" {
			t.Fatalf("readyz: checks %v", checks)
		}
	})

	t.Run("one failing check fails the probe", func(t *testing.T) {
		t.Parallel()
		srv := newProbeServer(t, map[string]health.Check{
			"database": func(context.Context) error { return errors.New("connection refused") },
			"discord":  func(context.Context) error { return nil },
		})

		code, body := getProbe(t, srv.URL+"/readyz")
		if code != http.StatusServiceUnavailable {
			t.Fatalf("readyz: status %d", code)
		}
		if body["status"] != "fail" {
			t.Fatalf("readyz: body %v", body)
		}
		checks := body["checks"].(map[string]any)
		if checks["database"] != "fail: connection refused" {
			t.Fatalf("readyz: database check %v", checks["database"])
		}
		if checks["discord"] != "ok" {
			t.Fatalf("readyz: discord check %v", checks["discord"])
		}
	})

	t.Run("no checks", func(t *testing.T) {
		t.Parallel()
		srv := newProbeServer(t, nil)
		code, _ := getProbe(t, srv.URL+"/readyz")
		if code != http.StatusOK {
			t.Fatalf("readyz: status %d", code)
		}
	})
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eddyvy/enscli-ai-manager/internal/vector"
)

func getJSON(t *testing.T, handler http.Handler, path string) (int, HealthResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding %s response: %v", path, err)
	}
	return rec.Code, resp
}

func TestLiveAlwaysHealthy(t *testing.T) {
	s := NewHealthServer("test")

	code, resp := getJSON(t, s.Handler(), "/live")
	if code != http.StatusOK {
		t.Errorf("status = %d", code)
	}
	if resp.Status != HealthStatusHealthy {
		t.Errorf("body status = %q", resp.Status)
	}
}

func TestReadyFollowsSetReady(t *testing.T) {
	s := NewHealthServer("test")
	h := s.Handler()

	if code, _ := getJSON(t, h, "/ready"); code != http.StatusServiceUnavailable {
		t.Errorf("before SetReady: status = %d", code)
	}

	s.SetReady(true)
	if code, _ := getJSON(t, h, "/ready"); code != http.StatusOK {
		t.Errorf("after SetReady: status = %d", code)
	}

	s.SetReady(false)
	if code, _ := getJSON(t, h, "/ready"); code != http.StatusServiceUnavailable {
		t.Errorf("after un-ready: status = %d", code)
	}
}

func TestHealthAggregatesChecks(t *testing.T) {
	s := NewHealthServer("1.2.3")
	s.RegisterCheck("good", func(ctx context.Context) HealthCheck {
		return HealthCheck{Status: HealthStatusHealthy}
	})

	code, resp := getJSON(t, s.Handler(), "/health")
	if code != http.StatusOK {
		t.Errorf("status = %d", code)
	}
	if resp.Version != "1.2.3" {
		t.Errorf("version = %q", resp.Version)
	}
	if len(resp.Checks) != 1 || resp.Checks[0].Name != "good" {
		t.Errorf("checks = %+v", resp.Checks)
	}

	s.RegisterCheck("bad", func(ctx context.Context) HealthCheck {
		return HealthCheck{Status: HealthStatusUnhealthy, Message: "down"}
	})
	code, resp = getJSON(t, s.Handler(), "/health")
	if code != http.StatusServiceUnavailable {
		t.Errorf("status with failing check = %d", code)
	}
	if resp.Status != HealthStatusUnhealthy {
		t.Errorf("aggregated status = %q", resp.Status)
	}
}

type pingStore struct {
	err error
}

func (p *pingStore) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	return nil
}

func (p *pingStore) Upsert(ctx context.Context, collection string, docs []vector.Document) error {
	return nil
}

func (p *pingStore) Search(ctx context.Context, collection string, vec []float32, limit int) ([]vector.SearchResult, error) {
	return nil, nil
}

func (p *pingStore) Ping(ctx context.Context) error { return p.err }
func (p *pingStore) Close() error                   { return nil }

func TestVectorStoreCheck(t *testing.T) {
	check := VectorStoreCheck(&pingStore{})
	if got := check(context.Background()); got.Status != HealthStatusHealthy {
		t.Errorf("healthy store reported %q", got.Status)
	}

	check = VectorStoreCheck(&pingStore{err: errors.New("connection refused")})
	got := check(context.Background())
	if got.Status != HealthStatusUnhealthy {
		t.Errorf("unreachable store reported %q", got.Status)
	}
	if got.Message == "" {
		t.Error("unhealthy check should carry the error message")
	}
}

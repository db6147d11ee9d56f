package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/riftline/predictarb/internal/discovery"
	"github.com/riftline/predictarb/internal/hotpath"
	"github.com/riftline/predictarb/pkg/healthprobe"
	"github.com/riftline/predictarb/pkg/types"
)

func TestNewMinimalConfig(t *testing.T) {
	server := New(&Config{Port: "8080", Logger: zap.NewNop(), HealthChecker: healthprobe.New()})
	if server == nil || server.server == nil {
		t.Fatal("New() did not build a server")
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New()})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestReadyEndpointReflectsHealthChecker(t *testing.T) {
	cases := []struct {
		name     string
		setReady bool
		want     int
	}{
		{"ready", true, http.StatusOK},
		{"not_ready", false, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hc := healthprobe.New()
			if tc.setReady {
				hc.SetReady(true)
			}
			server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: hc})

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			w := httptest.NewRecorder()
			server.server.Handler.ServeHTTP(w, req)

			if w.Result().StatusCode != tc.want {
				t.Errorf("ready status = %d, want %d", w.Result().StatusCode, tc.want)
			}
		})
	}
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New()})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) == 0 {
		t.Error("metrics body empty")
	}
}

func TestMarketEndpointOnlyRegisteredWithHotpathManager(t *testing.T) {
	server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New()})

	req := httptest.NewRequest(http.MethodGet, "/api/markets?id=m1", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("expected route not registered (404), got %d", w.Result().StatusCode)
	}
}

func TestMarketEndpointReturns404ForUntrackedMarket(t *testing.T) {
	hp := hotpath.New(hotpath.DefaultConfig(), zap.NewNop(), nil)
	disc := discovery.New(discovery.Config{Logger: zap.NewNop(), PollInterval: time.Minute})

	server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New(), HotpathManager: hp, DiscoveryService: disc})

	req := httptest.NewRequest(http.MethodGet, "/api/markets?id=does-not-exist", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Error == "" {
		t.Error("expected non-empty error message")
	}
}

func TestMarketEndpointMissingIDReturns400(t *testing.T) {
	hp := hotpath.New(hotpath.DefaultConfig(), zap.NewNop(), nil)
	server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New(), HotpathManager: hp})

	req := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

type fakeStatusProvider struct {
	snapshot types.StatusSnapshot
}

func (f fakeStatusProvider) Status() types.StatusSnapshot { return f.snapshot }

func TestStatusEndpointOnlyRegisteredWithProvider(t *testing.T) {
	server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New()})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("expected route not registered (404), got %d", w.Result().StatusCode)
	}
}

func TestStatusEndpointServesSnapshot(t *testing.T) {
	provider := fakeStatusProvider{snapshot: types.StatusSnapshot{MarketsTracked: 3, TotalEquity: 1500}}
	server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New(), StatusProvider: provider})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var got types.StatusSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.MarketsTracked != 3 || got.TotalEquity != 1500 {
		t.Errorf("got %+v, want MarketsTracked=3 TotalEquity=1500", got)
	}
}

func TestServerStartAndShutdown(t *testing.T) {
	server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New()})

	done := make(chan error, 1)
	go func() { done <- server.Start() }()
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned error after shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after shutdown")
	}
}

func TestRouteNotFound(t *testing.T) {
	server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New()})

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

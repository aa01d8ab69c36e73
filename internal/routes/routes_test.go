package routes_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/attune/internal/alerts"
	"github.com/BradenHooton/attune/internal/auth"
	"github.com/BradenHooton/attune/internal/fusion"
	"github.com/BradenHooton/attune/internal/handlers"
	"github.com/BradenHooton/attune/internal/routes"
	"github.com/BradenHooton/attune/internal/services"
	pkghttp "github.com/BradenHooton/attune/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type healthFunc func(ctx context.Context) error

func (f healthFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func newRouter(t *testing.T, health routes.HealthChecker) (http.Handler, *auth.TokenManager) {
	t.Helper()
	tm := auth.NewTokenManager("router-test-secret-32-characters", time.Hour)
	ips, _ := pkghttp.NewIPResolver(nil)
	admin := &handlers.MockAdminService{
		CriticalAlertsFunc: func() []alerts.Alert {
			return []alerts.Alert{{ID: 1, Level: fusion.LevelCritical, Type: alerts.TypeCoercion}}
		},
	}
	decisions := &handlers.MockDecisionService{
		SimulateFunc: func(req services.SimulationRequest) services.SimulationOutcome {
			return services.SimulationOutcome{Inputs: req, Result: fusion.Result{Decision: fusion.Delay}}
		},
	}

	r := routes.NewRouter(routes.Dependencies{
		Engine:           handlers.NewEngineHandler(decisions, &handlers.MockEnrollmentService{}, ips),
		Admin:            handlers.NewAdminHandler(admin),
		TokenManager:     tm,
		IPs:              ips,
		Metrics:          http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, "# metrics") }),
		Health:           health,
		Env:              "development",
		AttemptRateLimit: 2,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return r, tm
}

func TestRouter_Health(t *testing.T) {
	r, _ := newRouter(t, healthFunc(func(ctx context.Context) error { return nil }))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Content-Type-Options"))

	r, _ = newRouter(t, healthFunc(func(ctx context.Context) error { return errors.New("down") }))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_MetricsAndSimulate(t *testing.T) {
	r, _ := newRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, "# metrics", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/v1/simulate", strings.NewReader(`{"stress_level":0.4}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"decision":"delay"`)
}

func TestRouter_AdminRequiresToken(t *testing.T) {
	r, tm := newRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/v1/admin/alerts/critical", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := tm.GenerateAdminToken("operator-1")
	require.NoError(t, err)
	req := httptest.NewRequest("GET", "/v1/admin/alerts/critical", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestRouter_AttemptsAreRateLimited(t *testing.T) {
	r, _ := newRouter(t, nil)

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/v1/attempts", strings.NewReader(`{"user_id":"alice"}`))
		req.RemoteAddr = "203.0.113.77:9000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		last = w.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, last)
}

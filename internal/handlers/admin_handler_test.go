package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BradenHooton/attune/internal/alerts"
	"github.com/BradenHooton/attune/internal/fusion"
	"github.com/BradenHooton/attune/internal/handlers"
	"github.com/BradenHooton/attune/internal/models"
	"github.com/BradenHooton/attune/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Statistics ────────────────────────────────────────────────────────────────

func TestGetStatistics_Success_Returns200(t *testing.T) {
	mock := &handlers.MockAdminService{
		GetStatisticsFunc: func(ctx context.Context) (*services.StatisticsResponse, error) {
			stats := &models.AttemptStats{TotalAttempts: 4, Permits: 3, Denies: 1}
			stats.ComputeSuccessRate()
			return &services.StatisticsResponse{
				Authentication: stats,
				Alerts:         alerts.Statistics{TotalAlerts: 2},
				Users:          services.UserStats{Enrolled: 7},
			}, nil
		},
	}
	h := handlers.NewAdminHandler(mock)

	w := httptest.NewRecorder()
	h.GetStatistics(w, httptest.NewRequest("GET", "/v1/admin/statistics", nil))

	var resp services.StatisticsResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	require.NotNil(t, resp.Authentication)
	assert.Equal(t, 4, resp.Authentication.TotalAttempts)
	assert.Equal(t, 2, resp.Alerts.TotalAlerts)
	assert.Equal(t, 7, resp.Users.Enrolled)
}

func TestGetStatistics_ServiceError_Returns500(t *testing.T) {
	mock := &handlers.MockAdminService{
		GetStatisticsFunc: func(ctx context.Context) (*services.StatisticsResponse, error) {
			return nil, errors.New("database connection lost")
		},
	}
	h := handlers.NewAdminHandler(mock)

	w := httptest.NewRecorder()
	h.GetStatistics(w, httptest.NewRequest("GET", "/v1/admin/statistics", nil))

	handlers.AssertErrorResponse(t, w, http.StatusInternalServerError, "internal_error")
	assert.NotContains(t, w.Body.String(), "database connection lost")
}

// ── Attempts ──────────────────────────────────────────────────────────────────

func TestListAttempts_ForwardsFilters(t *testing.T) {
	var gotUser string
	var gotLimit int
	mock := &handlers.MockAdminService{
		ListAttemptsFunc: func(ctx context.Context, userID string, limit int) ([]*models.AccessAttempt, error) {
			gotUser, gotLimit = userID, limit
			return []*models.AccessAttempt{{UserID: userID, Decision: models.DecisionPermit}}, nil
		},
	}
	h := handlers.NewAdminHandler(mock)

	w := httptest.NewRecorder()
	h.ListAttempts(w, httptest.NewRequest("GET", "/v1/admin/attempts?limit=5&user_id=alice", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", gotUser)
	assert.Equal(t, 5, gotLimit)
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestListAttempts_EmptyListIsArray(t *testing.T) {
	h := handlers.NewAdminHandler(&handlers.MockAdminService{})

	w := httptest.NewRecorder()
	h.ListAttempts(w, httptest.NewRequest("GET", "/v1/admin/attempts?limit=abc", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"attempts":[]`)
}

// ── Alerts ────────────────────────────────────────────────────────────────────

func TestListAlerts_LevelFilter(t *testing.T) {
	var gotLevel fusion.AlertLevel
	var gotLimit int
	mock := &handlers.MockAdminService{
		ListAlertsFunc: func(limit int, level fusion.AlertLevel) []alerts.Alert {
			gotLimit, gotLevel = limit, level
			return []alerts.Alert{{ID: 9, Level: level, Type: alerts.TypeCoercion}}
		},
	}
	h := handlers.NewAdminHandler(mock)

	w := httptest.NewRecorder()
	h.ListAlerts(w, httptest.NewRequest("GET", "/v1/admin/alerts?level=critical&limit=10", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, fusion.LevelCritical, gotLevel)
	assert.Equal(t, 10, gotLimit)
	assert.Contains(t, w.Body.String(), `"id":9`)
}

func TestListAlerts_UnknownLevel_Returns400(t *testing.T) {
	h := handlers.NewAdminHandler(&handlers.MockAdminService{})

	w := httptest.NewRecorder()
	h.ListAlerts(w, httptest.NewRequest("GET", "/v1/admin/alerts?level=urgent", nil))

	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}

func TestCriticalAlerts_EmptyListIsArray(t *testing.T) {
	h := handlers.NewAdminHandler(&handlers.MockAdminService{})

	w := httptest.NewRecorder()
	h.CriticalAlerts(w, httptest.NewRequest("GET", "/v1/admin/alerts/critical", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"alerts":[]`)
	assert.Contains(t, w.Body.String(), `"count":0`)
}

func TestAcknowledgeAlert_RecordsActor(t *testing.T) {
	var gotActor string
	var gotID int64
	mock := &handlers.MockAdminService{
		AcknowledgeAlertFunc: func(ctx context.Context, actor string, id int64) (alerts.Alert, error) {
			gotActor, gotID = actor, id
			return alerts.Alert{ID: id, Acknowledged: true}, nil
		},
	}
	h := handlers.NewAdminHandler(mock)

	req := httptest.NewRequest("POST", "/v1/admin/alerts/12/acknowledge", nil)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "12"})
	req = handlers.WithAdminContext(req, "operator-1")
	w := httptest.NewRecorder()
	h.AcknowledgeAlert(w, req)

	var resp alerts.Alert
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.True(t, resp.Acknowledged)
	assert.Equal(t, "operator-1", gotActor)
	assert.Equal(t, int64(12), gotID)
}

func TestAcknowledgeAlert_Errors(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		status int
		code   string
	}{
		{"non numeric id", "abc", http.StatusBadRequest, "bad_request"},
		{"zero id", "0", http.StatusBadRequest, "bad_request"},
		{"unknown id", "404", http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewAdminHandler(&handlers.MockAdminService{})

			req := httptest.NewRequest("POST", "/v1/admin/alerts/"+tt.id+"/acknowledge", nil)
			req = handlers.WithChiRouteContext(req, map[string]string{"id": tt.id})
			w := httptest.NewRecorder()
			h.AcknowledgeAlert(w, req)

			handlers.AssertErrorResponse(t, w, tt.status, tt.code)
		})
	}
}

func TestResolveAlert_PassesNote(t *testing.T) {
	var gotNote string
	mock := &handlers.MockAdminService{
		ResolveAlertFunc: func(ctx context.Context, actor string, id int64, note string) (alerts.Alert, error) {
			gotNote = note
			return alerts.Alert{ID: id, Resolved: true, ResolutionNote: note}, nil
		},
	}
	h := handlers.NewAdminHandler(mock)

	req := handlers.NewTestRequest(t, "POST", "/v1/admin/alerts/3/resolve", map[string]string{"note": "false positive"})
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "3"})
	w := httptest.NewRecorder()
	h.ResolveAlert(w, req)

	var resp alerts.Alert
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.True(t, resp.Resolved)
	assert.Equal(t, "false positive", gotNote)
}

func TestResolveAlert_EmptyBodyAndOversizedNote(t *testing.T) {
	mock := &handlers.MockAdminService{
		ResolveAlertFunc: func(ctx context.Context, actor string, id int64, note string) (alerts.Alert, error) {
			return alerts.Alert{ID: id, Resolved: true}, nil
		},
	}
	h := handlers.NewAdminHandler(mock)

	req := httptest.NewRequest("POST", "/v1/admin/alerts/3/resolve", http.NoBody)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "3"})
	w := httptest.NewRecorder()
	h.ResolveAlert(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = handlers.NewTestRequest(t, "POST", "/v1/admin/alerts/3/resolve", map[string]string{"note": strings.Repeat("x", 1001)})
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "3"})
	w = httptest.NewRecorder()
	h.ResolveAlert(w, req)
	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}

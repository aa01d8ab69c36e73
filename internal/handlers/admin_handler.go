package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/BradenHooton/attune/internal/alerts"
	"github.com/BradenHooton/attune/internal/auth"
	"github.com/BradenHooton/attune/internal/fusion"
	"github.com/BradenHooton/attune/internal/models"
	"github.com/BradenHooton/attune/internal/services"
	pkghttp "github.com/BradenHooton/attune/pkg/http"
	"github.com/go-chi/chi/v5"
)

// AdminServiceInterface defines the operator console contract.
type AdminServiceInterface interface {
	GetStatistics(ctx context.Context) (*services.StatisticsResponse, error)
	ListAttempts(ctx context.Context, userID string, limit int) ([]*models.AccessAttempt, error)
	ListAlerts(limit int, level fusion.AlertLevel) []alerts.Alert
	CriticalAlerts() []alerts.Alert
	AcknowledgeAlert(ctx context.Context, actor string, id int64) (alerts.Alert, error)
	ResolveAlert(ctx context.Context, actor string, id int64, note string) (alerts.Alert, error)
}

type ResolveAlertRequest struct {
	Note string `json:"note" validate:"max=1000"`
}

type alertsResponse struct {
	Alerts []alerts.Alert `json:"alerts"`
	Count  int            `json:"count"`
}

type attemptsResponse struct {
	Attempts []*models.AccessAttempt `json:"attempts"`
	Count    int                     `json:"count"`
}

// AdminHandler handles operator HTTP requests.
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// GetStatistics handles GET /v1/admin/statistics
func (h *AdminHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStatistics(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to retrieve statistics")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, stats)
}

// ListAttempts handles GET /v1/admin/attempts?limit=N&user_id=U
func (h *AdminHandler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.service.ListAttempts(r.Context(), r.URL.Query().Get("user_id"), queryLimit(r))
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to retrieve attempts")
		return
	}
	if attempts == nil {
		attempts = []*models.AccessAttempt{}
	}

	pkghttp.WriteJSON(w, http.StatusOK, attemptsResponse{Attempts: attempts, Count: len(attempts)})
}

// ListAlerts handles GET /v1/admin/alerts?limit=N&level=L
func (h *AdminHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	level := fusion.AlertLevel(r.URL.Query().Get("level"))
	switch level {
	case "", fusion.LevelLow, fusion.LevelMedium, fusion.LevelHigh, fusion.LevelCritical:
	default:
		pkghttp.WriteBadRequest(w, "level must be one of: low medium high critical")
		return
	}

	writeAlerts(w, h.service.ListAlerts(queryLimit(r), level))
}

// CriticalAlerts handles GET /v1/admin/alerts/critical
func (h *AdminHandler) CriticalAlerts(w http.ResponseWriter, r *http.Request) {
	writeAlerts(w, h.service.CriticalAlerts())
}

// AcknowledgeAlert handles POST /v1/admin/alerts/{id}/acknowledge
func (h *AdminHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := alertID(w, r)
	if !ok {
		return
	}

	a, err := h.service.AcknowledgeAlert(r.Context(), actor(r), id)
	if err != nil {
		pkghttp.WriteDomainError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, a)
}

// ResolveAlert handles POST /v1/admin/alerts/{id}/resolve
func (h *AdminHandler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := alertID(w, r)
	if !ok {
		return
	}

	var req ResolveAlertRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	a, err := h.service.ResolveAlert(r.Context(), actor(r), id, req.Note)
	if err != nil {
		pkghttp.WriteDomainError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, a)
}

func writeAlerts(w http.ResponseWriter, list []alerts.Alert) {
	if list == nil {
		list = []alerts.Alert{}
	}
	pkghttp.WriteJSON(w, http.StatusOK, alertsResponse{Alerts: list, Count: len(list)})
}

func alertID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		pkghttp.WriteBadRequest(w, "Invalid alert id")
		return 0, false
	}
	return id, true
}

// queryLimit returns 0 for a missing or malformed limit; the service applies
// its default.
func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return n
}

func actor(r *http.Request) string {
	if claims := auth.GetAdminFromContext(r); claims != nil {
		return claims.Subject
	}
	return "unknown"
}

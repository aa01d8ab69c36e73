package services

import (
	"context"
	"log/slog"

	"github.com/BradenHooton/attune/internal/alerts"
	"github.com/BradenHooton/attune/internal/fusion"
	"github.com/BradenHooton/attune/internal/models"
	pkglogger "github.com/BradenHooton/attune/pkg/logger"
)

// AdminAttemptRepository is the subset of AttemptRepository methods needed by AdminService.
type AdminAttemptRepository interface {
	ListRecent(ctx context.Context, userID string, limit int) ([]*models.AccessAttempt, error)
	Stats(ctx context.Context) (*models.AttemptStats, error)
}

// AdminModelRepository is the subset of ModelRepository methods needed by AdminService.
type AdminModelRepository interface {
	CountEnrolled(ctx context.Context) (int, error)
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// UserStats counts enrolled users.
type UserStats struct {
	Enrolled int `json:"enrolled"`
}

// StatisticsResponse contains aggregate engine metrics.
type StatisticsResponse struct {
	Authentication *models.AttemptStats `json:"authentication"`
	Alerts         alerts.Statistics    `json:"alerts"`
	Users          UserStats            `json:"users"`
}

// AdminService backs the operator endpoints: alert triage and statistics.
type AdminService struct {
	attemptRepo AdminAttemptRepository
	modelRepo   AdminModelRepository
	ledger      *alerts.Ledger
	audit       *pkglogger.DecisionLogger
	logger      *slog.Logger
}

// NewAdminService creates a new AdminService.
func NewAdminService(
	attemptRepo AdminAttemptRepository,
	modelRepo AdminModelRepository,
	ledger *alerts.Ledger,
	audit *pkglogger.DecisionLogger,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		attemptRepo: attemptRepo,
		modelRepo:   modelRepo,
		ledger:      ledger,
		audit:       audit,
		logger:      logger,
	}
}

// GetStatistics returns attempt counts, alert statistics and enrolled users.
func (s *AdminService) GetStatistics(ctx context.Context) (*StatisticsResponse, error) {
	attempts, err := s.attemptRepo.Stats(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "statistics: failed to count attempts", slog.Any("error", err))
		return nil, err
	}

	enrolled, err := s.modelRepo.CountEnrolled(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "statistics: failed to count enrolled users", slog.Any("error", err))
		return nil, err
	}

	return &StatisticsResponse{
		Authentication: attempts,
		Alerts:         s.ledger.Statistics(),
		Users:          UserStats{Enrolled: enrolled},
	}, nil
}

// ListAttempts returns recent attempts, newest first. limit is clamped to
// [1, 500] and defaults to 50.
func (s *AdminService) ListAttempts(ctx context.Context, userID string, limit int) ([]*models.AccessAttempt, error) {
	return s.attemptRepo.ListRecent(ctx, userID, clampLimit(limit))
}

// ListAlerts returns recent alerts, optionally filtered by level.
func (s *AdminService) ListAlerts(limit int, level fusion.AlertLevel) []alerts.Alert {
	return s.ledger.Recent(clampLimit(limit), level)
}

// CriticalAlerts returns unacknowledged critical alerts.
func (s *AdminService) CriticalAlerts() []alerts.Alert {
	return s.ledger.CriticalUnacknowledged()
}

// AcknowledgeAlert returns models.ErrNotFound when the id is not retained.
func (s *AdminService) AcknowledgeAlert(ctx context.Context, actor string, id int64) (alerts.Alert, error) {
	ok := s.ledger.Acknowledge(id)
	s.audit.LogAlertAction(ctx, "acknowledge", actor, id, ok)
	if !ok {
		return alerts.Alert{}, models.ErrNotFound
	}
	a, _ := s.ledger.Get(id)
	return a, nil
}

// ResolveAlert returns models.ErrNotFound when the id is not retained.
func (s *AdminService) ResolveAlert(ctx context.Context, actor string, id int64, note string) (alerts.Alert, error) {
	ok := s.ledger.Resolve(id, note)
	s.audit.LogAlertAction(ctx, "resolve", actor, id, ok)
	if !ok {
		return alerts.Alert{}, models.ErrNotFound
	}
	a, _ := s.ledger.Get(id)
	return a, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

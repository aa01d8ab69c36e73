package services

import (
	"context"
	"log/slog"

	"github.com/BradenHooton/attune/internal/behavior"
	"github.com/BradenHooton/attune/internal/keystroke"
	"github.com/BradenHooton/attune/internal/metrics"
	pkglogger "github.com/BradenHooton/attune/pkg/logger"
)

// EnrollmentService enrolls users' typing rhythm
type EnrollmentService struct {
	registry *behavior.Registry
	metrics  *metrics.Metrics
	audit    *pkglogger.DecisionLogger
	logger   *slog.Logger
}

// NewEnrollmentService creates a new EnrollmentService
func NewEnrollmentService(registry *behavior.Registry, m *metrics.Metrics, audit *pkglogger.DecisionLogger, logger *slog.Logger) *EnrollmentService {
	return &EnrollmentService{
		registry: registry,
		metrics:  m,
		audit:    audit,
		logger:   logger,
	}
}

// Enroll replaces the user's model with one fitted on samples.
func (s *EnrollmentService) Enroll(ctx context.Context, userID string, samples []keystroke.Sample) (*behavior.ModelHandle, error) {
	handle, err := s.registry.Enroll(ctx, userID, samples)
	if err != nil {
		s.metrics.Enrollments.WithLabelValues("failure").Inc()
		s.audit.LogEnrollment(ctx, userID, len(samples), false)
		s.logger.WarnContext(ctx, "enrollment failed", slog.Any("error", err))
		return nil, err
	}

	s.metrics.Enrollments.WithLabelValues("success").Inc()
	s.audit.LogEnrollment(ctx, userID, len(samples), true)
	return handle, nil
}

// Enrolled reports whether the user can attempt access.
func (s *EnrollmentService) Enrolled(ctx context.Context, userID string) bool {
	return s.registry.Enrolled(ctx, userID)
}

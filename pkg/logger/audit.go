package logger

import (
	"context"
	"log/slog"
	"time"
)

// DecisionEvent is one access decision as it appears in the audit trail
type DecisionEvent struct {
	AttemptID  string
	UserID     string
	Decision   string
	Confidence float64
	AlertLevel string
	Rule       string
	IPAddress  string
	Alerts     int
}

// DecisionLogger writes the audit trail of access decisions
type DecisionLogger struct {
	logger *slog.Logger
	env    string
}

// NewDecisionLogger creates a new decision logger. User ids are masked when
// env is "production".
func NewDecisionLogger(logger *slog.Logger, env string) *DecisionLogger {
	return &DecisionLogger{
		logger: logger,
		env:    env,
	}
}

// LogDecision logs one decision; denials are logged at warn level
func (dl *DecisionLogger) LogDecision(ctx context.Context, event DecisionEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "decision"),
		slog.String("attempt_id", event.AttemptID),
		slog.String("user_id", dl.userID(event.UserID)),
		slog.String("decision", event.Decision),
		slog.Float64("confidence", event.Confidence),
		slog.String("alert_level", event.AlertLevel),
		slog.Int("alerts", event.Alerts),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.Rule != "" {
		attrs = append(attrs, slog.String("rule", event.Rule))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}

	level := slog.LevelInfo
	if event.Decision == "deny" {
		level = slog.LevelWarn
	}
	dl.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// LogEnrollment logs behavioral enrollment
func (dl *DecisionLogger) LogEnrollment(ctx context.Context, userID string, samples int, success bool) {
	attrs := []slog.Attr{
		slog.String("audit_type", "enrollment"),
		slog.String("user_id", dl.userID(userID)),
		slog.Int("samples", samples),
		slog.Bool("success", success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if success {
		dl.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
	} else {
		dl.logger.LogAttrs(ctx, slog.LevelWarn, "audit", attrs...)
	}
}

// LogAlertAction logs an operator acknowledging or resolving an alert
func (dl *DecisionLogger) LogAlertAction(ctx context.Context, action, actor string, alertID int64, found bool) {
	dl.logger.LogAttrs(ctx, slog.LevelInfo, "audit",
		slog.String("audit_type", "alert"),
		slog.String("event_type", action),
		slog.String("actor", actor),
		slog.Int64("alert_id", alertID),
		slog.Bool("found", found),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	)
}

func (dl *DecisionLogger) userID(id string) string {
	if dl.env == "production" {
		return SanitizedUserID(id)
	}
	return id
}

package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/attune/internal/database"
	"github.com/BradenHooton/attune/internal/models"
	"github.com/lib/pq"
)

// AttemptRepository handles database operations for access attempts
type AttemptRepository struct {
	db *database.DB
}

// NewAttemptRepository creates a new AttemptRepository
func NewAttemptRepository(db *database.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Create records an attempt
func (r *AttemptRepository) Create(ctx context.Context, a *models.AccessAttempt) error {
	query := `
		INSERT INTO access_attempts (id, user_id, decision, confidence, alert_level, reasons, inputs, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	reasons := a.Reasons
	if reasons == nil {
		reasons = []string{}
	}

	_, err := r.db.Pool.Exec(ctx, query,
		a.ID,
		a.UserID,
		a.Decision,
		a.Confidence,
		a.AlertLevel,
		pq.Array(reasons),
		a.Inputs,
		a.Result,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", database.MapPostgresError(err))
	}
	return nil
}

// ListRecent returns the newest attempts first. An empty userID lists every
// user.
func (r *AttemptRepository) ListRecent(ctx context.Context, userID string, limit int) ([]*models.AccessAttempt, error) {
	query := `
		SELECT id, user_id, decision, confidence, alert_level, reasons, inputs, result, created_at
		FROM access_attempts
		WHERE ($1 = '' OR user_id = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]*models.AccessAttempt, 0)
	for rows.Next() {
		var a models.AccessAttempt
		if err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.Decision,
			&a.Confidence,
			&a.AlertLevel,
			pq.Array(&a.Reasons),
			&a.Inputs,
			&a.Result,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, &a)
	}

	return attempts, rows.Err()
}

// Stats counts attempts per decision
func (r *AttemptRepository) Stats(ctx context.Context) (*models.AttemptStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE decision = 'permit'),
			COUNT(*) FILTER (WHERE decision = 'delay'),
			COUNT(*) FILTER (WHERE decision = 'deny')
		FROM access_attempts
	`

	var s models.AttemptStats
	if err := r.db.Pool.QueryRow(ctx, query).Scan(&s.TotalAttempts, &s.Permits, &s.Delays, &s.Denies); err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}
	s.ComputeSuccessRate()
	return &s, nil
}

// DeleteOlderThan removes attempts created before cutoff and returns how many
// were deleted.
func (r *AttemptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM access_attempts WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old attempts: %w", err)
	}
	return tag.RowsAffected(), nil
}

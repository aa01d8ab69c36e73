package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BradenHooton/attune/internal/alerts"
	"github.com/BradenHooton/attune/internal/database"
	"github.com/BradenHooton/attune/internal/fusion"
	"github.com/jackc/pgx/v5"
)

// AlertRepository stores snapshots of the alert ledger
type AlertRepository struct {
	db *database.DB
}

// NewAlertRepository creates a new AlertRepository
func NewAlertRepository(db *database.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// ReplaceSnapshot upserts every alert in the snapshot and deletes stored
// alerts older than the oldest retained one, in one transaction.
func (r *AlertRepository) ReplaceSnapshot(ctx context.Context, snapshot []alerts.Alert) error {
	upsert := `
		INSERT INTO alerts (id, type, level, priority, user_id, message, details, created_at,
			acknowledged, resolved, acknowledged_at, resolved_at, resolution_note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			type = EXCLUDED.type,
			level = EXCLUDED.level,
			priority = EXCLUDED.priority,
			user_id = EXCLUDED.user_id,
			message = EXCLUDED.message,
			details = EXCLUDED.details,
			created_at = EXCLUDED.created_at,
			acknowledged = EXCLUDED.acknowledged,
			resolved = EXCLUDED.resolved,
			acknowledged_at = EXCLUDED.acknowledged_at,
			resolved_at = EXCLUDED.resolved_at,
			resolution_note = EXCLUDED.resolution_note
	`

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if len(snapshot) == 0 {
			_, err := tx.Exec(ctx, `DELETE FROM alerts`)
			return err
		}

		batch := &pgx.Batch{}
		for _, a := range snapshot {
			details, err := json.Marshal(a.Details)
			if err != nil {
				return fmt.Errorf("failed to encode alert %d details: %w", a.ID, err)
			}
			batch.Queue(upsert,
				a.ID, a.Type, string(a.Level), a.Priority, a.UserID, a.Message, details, a.CreatedAt,
				a.Acknowledged, a.Resolved, a.AcknowledgedAt, a.ResolvedAt, a.ResolutionNote,
			)
		}
		batch.Queue(`DELETE FROM alerts WHERE id < $1`, snapshot[0].ID)

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to write alert snapshot: %w", database.MapPostgresError(err))
		}
		return nil
	})
}

// ReserveAlertIDs claims n consecutive alert ids and returns the first.
// The watermark never drops below the highest stored id.
func (r *AlertRepository) ReserveAlertIDs(ctx context.Context, n int64) (int64, error) {
	query := `
		INSERT INTO alert_id_watermark (singleton, next_id)
		SELECT TRUE, COALESCE(MAX(id), 0) + 1 + $1 FROM alerts
		ON CONFLICT (singleton) DO UPDATE
		SET next_id = GREATEST(alert_id_watermark.next_id, EXCLUDED.next_id - $1) + $1
		RETURNING next_id - $1
	`

	var first int64
	if err := r.db.Pool.QueryRow(ctx, query, n).Scan(&first); err != nil {
		return 0, fmt.Errorf("failed to reserve alert ids: %w", database.MapPostgresError(err))
	}
	return first, nil
}

// LoadRecent returns up to limit of the newest stored alerts, ordered by id.
func (r *AlertRepository) LoadRecent(ctx context.Context, limit int) ([]alerts.Alert, error) {
	query := `
		SELECT id, type, level, priority, user_id, message, details, created_at,
			acknowledged, resolved, acknowledged_at, resolved_at, resolution_note
		FROM (
			SELECT * FROM alerts ORDER BY id DESC LIMIT $1
		) recent
		ORDER BY id ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load alerts: %w", err)
	}
	defer rows.Close()

	out := make([]alerts.Alert, 0)
	for rows.Next() {
		var (
			a       alerts.Alert
			level   string
			details []byte
		)
		if err := rows.Scan(
			&a.ID, &a.Type, &level, &a.Priority, &a.UserID, &a.Message, &details, &a.CreatedAt,
			&a.Acknowledged, &a.Resolved, &a.AcknowledgedAt, &a.ResolvedAt, &a.ResolutionNote,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Level = fusion.AlertLevel(level)
		if err := json.Unmarshal(details, &a.Details); err != nil {
			return nil, fmt.Errorf("failed to decode alert %d details: %w", a.ID, err)
		}
		out = append(out, a)
	}

	return out, rows.Err()
}

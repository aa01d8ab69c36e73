package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/attune/internal/behavior"
	"github.com/BradenHooton/attune/internal/database"
	"github.com/BradenHooton/attune/internal/models"
)

// ModelRepository persists behavioral models as integrity-protected blobs.
// It implements behavior.ModelStore.
type ModelRepository struct {
	db    *database.DB
	codec *behavior.Codec
}

// NewModelRepository creates a new ModelRepository
func NewModelRepository(db *database.DB, codec *behavior.Codec) *ModelRepository {
	return &ModelRepository{db: db, codec: codec}
}

// SaveModel upserts the user's model, replacing any previous one.
func (r *ModelRepository) SaveModel(ctx context.Context, m *behavior.Model) error {
	data, digest, err := r.codec.Encode(m)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO behavior_models (user_id, kind, model, digest, sample_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			kind = EXCLUDED.kind,
			model = EXCLUDED.model,
			digest = EXCLUDED.digest,
			sample_count = EXCLUDED.sample_count,
			created_at = EXCLUDED.created_at,
			updated_at = NOW()
	`

	_, err = r.db.Pool.Exec(ctx, query, m.UserID, m.Kind, data, digest, m.SampleCount, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save model: %w", database.MapPostgresError(err))
	}
	return nil
}

// LoadModel returns models.ErrNotFound when the user has no model and
// models.ErrModelCorrupted when the stored blob fails verification.
func (r *ModelRepository) LoadModel(ctx context.Context, userID string) (*behavior.Model, error) {
	query := `SELECT model, digest FROM behavior_models WHERE user_id = $1`

	var data, digest []byte
	if err := r.db.Pool.QueryRow(ctx, query, userID).Scan(&data, &digest); err != nil {
		return nil, database.MapPostgresError(err)
	}

	m, err := r.codec.Decode(data, digest)
	if err != nil {
		return nil, err
	}
	if m.UserID != userID {
		return nil, fmt.Errorf("stored model belongs to another user: %w", models.ErrModelCorrupted)
	}
	return m, nil
}

// CountEnrolled returns the number of users with a stored model.
func (r *ModelRepository) CountEnrolled(ctx context.Context) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM behavior_models`).Scan(&count)
	return count, err
}

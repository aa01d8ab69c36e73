package behavior

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/attune/internal/keystroke"
	"github.com/BradenHooton/attune/internal/models"
)

// ModelStore persists models outside the process.
type ModelStore interface {
	SaveModel(ctx context.Context, m *Model) error
	LoadModel(ctx context.Context, userID string) (*Model, error)
}

// Registry owns the per-user models. Each user's model is published by a
// single atomic map store, so scorers observe either the previous or the new
// model and users never contend with each other. Enrollments for the same
// user persist and publish in one order.
type Registry struct {
	estimator Estimator
	store     ModelStore
	logger    *slog.Logger
	models    sync.Map // user id -> *Model
	enrolling sync.Map // user id -> *sync.Mutex
	now       func() time.Time
}

// NewRegistry creates a registry. store may be nil for a memory-only registry.
func NewRegistry(estimator Estimator, store ModelStore, logger *slog.Logger) *Registry {
	return &Registry{
		estimator: estimator,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
}

// Enroll fits a new model from the samples and replaces any existing one.
func (r *Registry) Enroll(ctx context.Context, userID string, samples []keystroke.Sample) (*ModelHandle, error) {
	if len(samples) == 0 {
		return nil, models.ErrInsufficientData
	}

	vectors := make([]keystroke.FeatureVector, len(samples))
	for i, s := range samples {
		vectors[i] = keystroke.Extract(s)
	}

	boundary, err := r.estimator.Fit(vectors)
	if err != nil {
		return nil, fmt.Errorf("failed to fit model for %s: %w", userID, err)
	}

	m := &Model{
		UserID:      userID,
		Kind:        r.estimator.Kind(),
		Params:      r.estimator.Params(),
		SampleCount: len(samples),
		CreatedAt:   r.now().UTC(),
		Boundary:    boundary,
	}

	mu := r.enrollLock(userID)
	mu.Lock()
	defer mu.Unlock()

	if r.store != nil {
		if err := r.store.SaveModel(ctx, m); err != nil {
			return nil, fmt.Errorf("failed to persist model: %w", err)
		}
	}

	r.models.Store(userID, m)

	r.logger.InfoContext(ctx, "behavioral model enrolled",
		slog.String("kind", m.Kind),
		slog.Int("samples", m.SampleCount),
	)

	return m.Handle(), nil
}

func (r *Registry) enrollLock(userID string) *sync.Mutex {
	v, _ := r.enrolling.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Score evaluates a sample against the user's current model.
func (r *Registry) Score(ctx context.Context, userID string, sample keystroke.Sample) (Result, error) {
	m, err := r.Model(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	return ResultFromDistance(m.Boundary.Decision(keystroke.Extract(sample))), nil
}

// Model returns the published model, loading it from the store on a miss.
func (r *Registry) Model(ctx context.Context, userID string) (*Model, error) {
	if v, ok := r.models.Load(userID); ok {
		return v.(*Model), nil
	}
	if r.store == nil {
		return nil, models.ErrModelNotFound
	}

	m, err := r.store.LoadModel(ctx, userID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return nil, models.ErrModelNotFound
	case errors.Is(err, models.ErrModelCorrupted):
		r.logger.ErrorContext(ctx, "stored behavioral model rejected", slog.Any("error", err))
		return nil, models.ErrModelNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	// a concurrent enroll may have published a newer model meanwhile
	actual, _ := r.models.LoadOrStore(userID, m)
	return actual.(*Model), nil
}

// Enrolled reports whether a model is available for the user.
func (r *Registry) Enrolled(ctx context.Context, userID string) bool {
	_, err := r.Model(ctx, userID)
	return err == nil
}

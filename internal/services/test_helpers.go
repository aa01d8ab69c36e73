package services

import (
	"context"
	"sync"

	"github.com/BradenHooton/attune/internal/alerts"
	"github.com/BradenHooton/attune/internal/models"
)

// MockAttemptRepository implements AttemptRecorder and AdminAttemptRepository for testing
type MockAttemptRepository struct {
	mu sync.Mutex

	CreateFunc     func(ctx context.Context, attempt *models.AccessAttempt) error
	ListRecentFunc func(ctx context.Context, userID string, limit int) ([]*models.AccessAttempt, error)
	StatsFunc      func(ctx context.Context) (*models.AttemptStats, error)

	Created []*models.AccessAttempt
}

func (m *MockAttemptRepository) Create(ctx context.Context, attempt *models.AccessAttempt) error {
	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, attempt); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Created = append(m.Created, attempt)
	return nil
}

func (m *MockAttemptRepository) ListRecent(ctx context.Context, userID string, limit int) ([]*models.AccessAttempt, error) {
	if m.ListRecentFunc != nil {
		return m.ListRecentFunc(ctx, userID, limit)
	}
	return []*models.AccessAttempt{}, nil
}

func (m *MockAttemptRepository) Stats(ctx context.Context) (*models.AttemptStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &models.AttemptStats{}, nil
}

// Recorded returns a copy of the attempts created so far
func (m *MockAttemptRepository) Recorded() []*models.AccessAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AccessAttempt, len(m.Created))
	copy(out, m.Created)
	return out
}

// MockModelRepository implements AdminModelRepository for testing
type MockModelRepository struct {
	CountEnrolledFunc func(ctx context.Context) (int, error)
}

func (m *MockModelRepository) CountEnrolled(ctx context.Context) (int, error) {
	if m.CountEnrolledFunc != nil {
		return m.CountEnrolledFunc(ctx)
	}
	return 0, nil
}

// MockAlertNotifier implements AlertNotifier for testing
type MockAlertNotifier struct {
	mu sync.Mutex

	NotifyErr error
	Sent      []alerts.Alert
}

func (m *MockAlertNotifier) Name() string { return "mock" }

func (m *MockAlertNotifier) Notify(ctx context.Context, alert alerts.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, alert)
	return m.NotifyErr
}

// Delivered returns a copy of the alerts received so far
func (m *MockAlertNotifier) Delivered() []alerts.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]alerts.Alert, len(m.Sent))
	copy(out, m.Sent)
	return out
}

// MockIDReserver is a mock implementation of alerts.IDReserver
type MockIDReserver struct {
	ReserveAlertIDsFunc func(ctx context.Context, n int64) (int64, error)
}

func (m *MockIDReserver) ReserveAlertIDs(ctx context.Context, n int64) (int64, error) {
	if m.ReserveAlertIDsFunc != nil {
		return m.ReserveAlertIDsFunc(ctx, n)
	}
	return 1, nil
}

package alerts

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/BradenHooton/attune/internal/fusion"
)

// DefaultCapacity is the number of most recent alerts a ledger retains.
const DefaultCapacity = 1000

// DefaultIDBlock is how many ids a ledger reserves at a time.
const DefaultIDBlock = 256

// IDReserver hands out blocks of alert ids. A block starting at the
// returned id and n long is never handed out again, across restarts too.
type IDReserver interface {
	ReserveAlertIDs(ctx context.Context, n int64) (int64, error)
}

// Alert is a ledger entry. Only Acknowledge and Resolve change it after
// Append.
type Alert struct {
	ID             int64             `json:"id"`
	Type           string            `json:"type"`
	Level          fusion.AlertLevel `json:"level"`
	Priority       int               `json:"priority"`
	UserID         string            `json:"user_id"`
	Message        string            `json:"message"`
	Details        map[string]any    `json:"details"`
	CreatedAt      time.Time         `json:"created_at"`
	Acknowledged   bool              `json:"acknowledged"`
	Resolved       bool              `json:"resolved"`
	AcknowledgedAt *time.Time        `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time        `json:"resolved_at,omitempty"`
	ResolutionNote string            `json:"resolution_note,omitempty"`
}

// Statistics aggregates the retained ledger.
type Statistics struct {
	TotalAlerts            int            `json:"total_alerts"`
	ByLevel                map[string]int `json:"by_level"`
	ByType                 map[string]int `json:"by_type"`
	Unacknowledged         int            `json:"unacknowledged"`
	Unresolved             int            `json:"unresolved"`
	CriticalUnacknowledged int            `json:"critical_unacknowledged"`
}

// Ledger is an append-only, capped alert log ordered by id. Writers are
// serialised; readers share a read lock.
type Ledger struct {
	mu       sync.RWMutex
	alerts   []Alert
	nextID   int64
	capacity int
	version  uint64
	now      func() time.Time

	// ids in [nextID, limit) are reserved; only read when reserver is set
	reserver IDReserver
	block    int64
	limit    int64
}

// NewLedger creates an empty ledger. A non-positive capacity selects
// DefaultCapacity.
func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{
		alerts:   make([]Alert, 0, capacity),
		nextID:   1,
		capacity: capacity,
		now:      time.Now,
	}
}

// UseReserver makes the ledger take ids only from blocks claimed through r.
// A non-positive block selects DefaultIDBlock.
func (l *Ledger) UseReserver(r IDReserver, block int64) {
	if block <= 0 {
		block = DefaultIDBlock
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.reserver = r
	l.block = block
	l.limit = 0
}

// Append stores a draft under the next id, evicting the oldest entry when
// the ledger is full.
func (l *Ledger) Append(ctx context.Context, d Draft) (Alert, error) {
	out, err := l.AppendAll(ctx, []Draft{d})
	if err != nil {
		return Alert{}, err
	}
	return out[0], nil
}

// AppendAll stores the drafts in order under a single lock. Nothing is
// stored when ids cannot be reserved.
func (l *Ledger) AppendAll(ctx context.Context, drafts []Draft) ([]Alert, error) {
	out := make([]Alert, 0, len(drafts))
	if len(drafts) == 0 {
		return out, nil
	}
	need := int64(len(drafts))

	for {
		l.mu.Lock()
		if l.reserver == nil || l.limit-l.nextID >= need {
			for _, d := range drafts {
				out = append(out, l.appendLocked(d))
			}
			l.mu.Unlock()
			return out, nil
		}
		reserver, size := l.reserver, max(l.block, need)
		l.mu.Unlock()

		first, err := reserver.ReserveAlertIDs(ctx, size)
		if err != nil {
			return nil, fmt.Errorf("failed to reserve alert ids: %w", err)
		}

		l.mu.Lock()
		// a block claimed concurrently may already be behind nextID
		if first >= l.nextID {
			l.nextID = first
			l.limit = first + size
		}
		l.mu.Unlock()
	}
}

func (l *Ledger) appendLocked(d Draft) Alert {
	a := Alert{
		ID:        l.nextID,
		Type:      d.Type,
		Level:     d.Level,
		Priority:  d.Level.Priority(),
		UserID:    d.UserID,
		Message:   d.Message,
		Details:   d.Details,
		CreatedAt: l.now().UTC(),
	}
	if a.Details == nil {
		a.Details = map[string]any{}
	}
	l.nextID++

	l.alerts = append(l.alerts, a)
	if over := len(l.alerts) - l.capacity; over > 0 {
		// reslice; the next growth copies only the retained window
		clear(l.alerts[:over])
		l.alerts = l.alerts[over:]
	}
	l.version++
	return a
}

// Acknowledge marks the alert acknowledged. It reports false for ids not in
// the ledger; acknowledging twice keeps the first timestamp and reports true.
func (l *Ledger) Acknowledge(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	a := l.findLocked(id)
	if a == nil {
		return false
	}
	if !a.Acknowledged {
		now := l.now().UTC()
		a.Acknowledged = true
		a.AcknowledgedAt = &now
		l.version++
	}
	return true
}

// Resolve marks the alert resolved with a note. Repeat calls report true
// and leave the first resolution in place.
func (l *Ledger) Resolve(id int64, note string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	a := l.findLocked(id)
	if a == nil {
		return false
	}
	if !a.Resolved {
		now := l.now().UTC()
		a.Resolved = true
		a.ResolvedAt = &now
		a.ResolutionNote = note
		l.version++
	}
	return true
}

// findLocked relies on ids increasing along the slice.
func (l *Ledger) findLocked(id int64) *Alert {
	i := sort.Search(len(l.alerts), func(i int) bool { return l.alerts[i].ID >= id })
	if i < len(l.alerts) && l.alerts[i].ID == id {
		return &l.alerts[i]
	}
	return nil
}

// Get returns a copy of one alert.
func (l *Ledger) Get(id int64) (Alert, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a := l.findLocked(id)
	if a == nil {
		return Alert{}, false
	}
	return *a, true
}

// Statistics counts the retained alerts.
func (l *Ledger) Statistics() Statistics {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := Statistics{
		TotalAlerts: len(l.alerts),
		ByLevel:     make(map[string]int),
		ByType:      make(map[string]int),
	}
	for _, a := range l.alerts {
		stats.ByLevel[string(a.Level)]++
		stats.ByType[a.Type]++
		if !a.Acknowledged {
			stats.Unacknowledged++
			if a.Level == fusion.LevelCritical {
				stats.CriticalUnacknowledged++
			}
		}
		if !a.Resolved {
			stats.Unresolved++
		}
	}
	return stats
}

// Recent returns up to limit alerts, newest first. An empty level matches
// every level.
func (l *Ledger) Recent(limit int, level fusion.AlertLevel) []Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Alert, 0)
	for i := len(l.alerts) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if level == "" || l.alerts[i].Level == level {
			out = append(out, l.alerts[i])
		}
	}
	return out
}

// CriticalUnacknowledged returns the critical alerts nobody has
// acknowledged yet, oldest first.
func (l *Ledger) CriticalUnacknowledged() []Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Alert, 0)
	for _, a := range l.alerts {
		if a.Level == fusion.LevelCritical && !a.Acknowledged {
			out = append(out, a)
		}
	}
	return out
}

// Len returns the number of retained alerts.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.alerts)
}

// Version increases on every change to the ledger.
func (l *Ledger) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Snapshot returns a copy of the retained alerts and the version it reflects.
func (l *Ledger) Snapshot() ([]Alert, uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Alert, len(l.alerts))
	copy(out, l.alerts)
	return out, l.version
}

// Restore replaces the ledger content, typically with alerts loaded at
// startup. Alerts are ordered by id and trimmed to capacity; new ids
// continue after the highest restored id, or come from a fresh block when
// a reserver is set.
func (l *Ledger) Restore(alerts []Alert) {
	sorted := make([]Alert, len(alerts))
	copy(sorted, alerts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	if over := len(sorted) - l.capacity; over > 0 {
		sorted = sorted[over:]
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.alerts = sorted
	l.limit = 0
	for _, a := range sorted {
		if a.ID >= l.nextID {
			l.nextID = a.ID + 1
		}
	}
}

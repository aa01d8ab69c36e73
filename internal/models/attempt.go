package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Decisions recorded for an access attempt
const (
	DecisionPermit = "permit"
	DecisionDelay  = "delay"
	DecisionDeny   = "deny"
)

// AccessAttempt is the persisted record of one access decision.
type AccessAttempt struct {
	ID         uuid.UUID `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	Decision   string    `db:"decision" json:"decision"`
	Confidence float64   `db:"confidence" json:"confidence"`
	AlertLevel string    `db:"alert_level" json:"alert_level"`
	Reasons    []string  `db:"reasons" json:"reasons"`
	Inputs     Document  `db:"inputs" json:"inputs"`
	Result     Document  `db:"result" json:"result"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AttemptStats counts attempts per decision.
type AttemptStats struct {
	TotalAttempts int     `json:"total_attempts"`
	Permits       int     `json:"permits"`
	Delays        int     `json:"delays"`
	Denies        int     `json:"denies"`
	SuccessRate   float64 `json:"success_rate"`
}

// ComputeSuccessRate fills SuccessRate as a percentage of permits.
func (s *AttemptStats) ComputeSuccessRate() {
	if s.TotalAttempts == 0 {
		s.SuccessRate = 0
		return
	}
	s.SuccessRate = float64(s.Permits) / float64(s.TotalAttempts) * 100
}

// Document is a free-form JSONB column.
type Document map[string]interface{}

// NewDocument converts any JSON-marshalable value into a Document.
func NewDocument(v interface{}) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var d Document
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return d, nil
}

// Scan implements sql.Scanner for JSONB
func (d *Document) Scan(value interface{}) error {
	if value == nil {
		*d = make(Document)
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return ErrBadRequest
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	*d = Document(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (d Document) Value() (driver.Value, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]interface{}(d))
}

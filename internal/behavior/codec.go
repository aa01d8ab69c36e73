package behavior

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BradenHooton/attune/internal/models"
	"golang.org/x/crypto/blake2b"
)

// envelope is the persisted form of a Model.
type envelope struct {
	UserID      string          `json:"user_id"`
	Kind        string          `json:"kind"`
	Params      Params          `json:"params"`
	SampleCount int             `json:"sample_count"`
	CreatedAt   time.Time       `json:"created_at"`
	Boundary    json.RawMessage `json:"boundary"`
}

// Codec serialises models with a keyed BLAKE2b-256 digest so tampered or
// truncated templates are rejected on load.
type Codec struct {
	key       []byte
	estimator Estimator
}

// NewCodec returns a codec. key may be empty (unkeyed digest) but must not
// exceed 64 bytes.
func NewCodec(key []byte, estimator Estimator) (*Codec, error) {
	if len(key) > blake2b.Size {
		return nil, fmt.Errorf("model integrity key longer than %d bytes: %w", blake2b.Size, models.ErrBadRequest)
	}
	return &Codec{key: key, estimator: estimator}, nil
}

// Encode returns the model blob and its digest.
func (c *Codec) Encode(m *Model) ([]byte, []byte, error) {
	boundary, err := json.Marshal(m.Boundary)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode boundary: %w", err)
	}

	data, err := json.Marshal(envelope{
		UserID:      m.UserID,
		Kind:        m.Kind,
		Params:      m.Params,
		SampleCount: m.SampleCount,
		CreatedAt:   m.CreatedAt,
		Boundary:    boundary,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode model: %w", err)
	}

	digest, err := c.digest(data)
	if err != nil {
		return nil, nil, err
	}
	return data, digest, nil
}

// Decode verifies the digest and rebuilds the model.
func (c *Codec) Decode(data, digest []byte) (*Model, error) {
	want, err := c.digest(data)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(want, digest) != 1 {
		return nil, models.ErrModelCorrupted
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if env.Kind != c.estimator.Kind() {
		return nil, fmt.Errorf("model kind %q not supported by %q estimator: %w", env.Kind, c.estimator.Kind(), models.ErrModelCorrupted)
	}

	boundary, err := c.estimator.Decode(env.Boundary)
	if err != nil {
		return nil, err
	}

	return &Model{
		UserID:      env.UserID,
		Kind:        env.Kind,
		Params:      env.Params,
		SampleCount: env.SampleCount,
		CreatedAt:   env.CreatedAt,
		Boundary:    boundary,
	}, nil
}

func (c *Codec) digest(data []byte) ([]byte, error) {
	h, err := blake2b.New256(c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to init digest: %w", err)
	}
	h.Write(data)
	return h.Sum(nil), nil
}

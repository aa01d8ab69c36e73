package models

import (
	"testing"
)

func TestNewDocument_FromStruct(t *testing.T) {
	doc, err := NewDocument(struct {
		Decision string   `json:"decision"`
		Score    float64  `json:"score"`
		Reasons  []string `json:"reason"`
	}{"deny", 0.25, []string{"Keystroke pattern anomaly detected"}})
	if err != nil {
		t.Fatalf("NewDocument() = %v, want nil", err)
	}

	if doc["decision"] != "deny" {
		t.Errorf("expected decision deny, got %v", doc["decision"])
	}
	if doc["score"] != 0.25 {
		t.Errorf("expected score 0.25, got %v", doc["score"])
	}
	reasons, ok := doc["reason"].([]interface{})
	if !ok || len(reasons) != 1 {
		t.Errorf("expected one reason, got %v", doc["reason"])
	}
}

func TestDocument_ScanAndValue(t *testing.T) {
	var doc Document
	if err := doc.Scan([]byte(`{"decision":"permit","confidence":0.9}`)); err != nil {
		t.Fatalf("Scan() = %v, want nil", err)
	}
	if doc["decision"] != "permit" {
		t.Errorf("expected decision permit, got %v", doc["decision"])
	}

	v, err := doc.Value()
	if err != nil {
		t.Fatalf("Value() = %v, want nil", err)
	}
	if _, ok := v.([]byte); !ok {
		t.Errorf("expected []byte, got %T", v)
	}
}

func TestDocument_ScanNil(t *testing.T) {
	var doc Document
	if err := doc.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) = %v, want nil", err)
	}
	if doc == nil || len(doc) != 0 {
		t.Errorf("expected empty document, got %v", doc)
	}
}

func TestDocument_ScanRejectsUnknownType(t *testing.T) {
	var doc Document
	if err := doc.Scan(42); err != ErrBadRequest {
		t.Errorf("Scan(42) = %v, want ErrBadRequest", err)
	}
}

func TestDocument_NilValueIsEmptyObject(t *testing.T) {
	var doc Document
	v, err := doc.Value()
	if err != nil {
		t.Fatalf("Value() = %v, want nil", err)
	}
	if string(v.([]byte)) != "{}" {
		t.Errorf("expected {}, got %s", v)
	}
}

func TestAttemptStats_SuccessRate(t *testing.T) {
	s := AttemptStats{TotalAttempts: 8, Permits: 6, Delays: 1, Denies: 1}
	s.ComputeSuccessRate()
	if s.SuccessRate != 75 {
		t.Errorf("expected 75, got %v", s.SuccessRate)
	}

	empty := AttemptStats{}
	empty.ComputeSuccessRate()
	if empty.SuccessRate != 0 {
		t.Errorf("expected 0 for no attempts, got %v", empty.SuccessRate)
	}
}

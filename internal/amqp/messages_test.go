package amqp

import (
	"testing"
	"time"
)

func TestLedgerEventRoundTrip(t *testing.T) {
	event := NewLedgerEvent(EventExpenseAdded, 42, 7)
	if event.ID == "" {
		t.Fatal("event has no id")
	}

	body, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	decoded, err := LedgerEventFromJSON(body)
	if err != nil {
		t.Fatalf("LedgerEventFromJSON: %v", err)
	}

	if decoded.ID != event.ID || decoded.Kind != EventExpenseAdded {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.EntityID != 42 || decoded.AccountID != 7 {
		t.Errorf("ids = %d/%d, want 42/7", decoded.EntityID, decoded.AccountID)
	}
	if decoded.Timestamp.IsZero() || time.Since(decoded.Timestamp) > time.Minute {
		t.Errorf("timestamp = %v", decoded.Timestamp)
	}
}

func TestLedgerEventFromJSONRejectsGarbage(t *testing.T) {
	if _, err := LedgerEventFromJSON([]byte("not json")); err == nil {
		t.Error("garbage accepted")
	}
}

func TestNewLedgerEventUniqueIDs(t *testing.T) {
	a := NewLedgerEvent(EventIncomeAdded, 1, 1)
	b := NewLedgerEvent(EventIncomeAdded, 1, 1)
	if a.ID == b.ID {
		t.Error("two events share an id")
	}
}

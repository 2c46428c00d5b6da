package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventExpenseAdded       EventKind = "expense_added"
	EventExpenseDeleted     EventKind = "expense_deleted"
	EventExpenseRestored    EventKind = "expense_restored"
	EventIncomeAdded        EventKind = "income_added"
	EventIncomeUpdated      EventKind = "income_updated"
	EventIncomeDeleted      EventKind = "income_deleted"
	EventIncomeRestored     EventKind = "income_restored"
	EventTransferAdded      EventKind = "transfer_added"
	EventAccountCorrected   EventKind = "account_corrected"
	EventChargeMaterialized EventKind = "charge_materialized"
)

// LedgerEvent is a lightweight notification that a balance-affecting mutation
// committed. Consumers fetch whatever detail they need from the store; the
// message deliberately carries only identifiers.
type LedgerEvent struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	EntityID  int64     `json:"entity_id"`
	AccountID int64     `json:"account_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(kind EventKind, entityID, accountID int64) *LedgerEvent {
	return &LedgerEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		EntityID:  entityID,
		AccountID: accountID,
		Timestamp: time.Now(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

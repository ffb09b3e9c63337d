package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds published by the ledger engine after a committed mutation.
const (
	EventTransactionRecorded = "transaction_recorded"
	EventTransactionEdited   = "transaction_edited"
	EventTransactionDeleted  = "transaction_deleted"
	EventDebtPayment         = "debt_payment"
)

// LedgerEventMessage is a lightweight notification that something committed.
// It carries identifiers only; consumers fetch the full rows from storage.
type LedgerEventMessage struct {
	Kind          string    `json:"kind"`
	UserID        int64     `json:"user_id"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	DebtID        int64     `json:"debt_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerEventMessage creates an event stamped with the current time.
func NewLedgerEventMessage(kind string, userID int64) *LedgerEventMessage {
	return &LedgerEventMessage{
		Kind:      kind,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON parses a message from JSON bytes.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Ledger operations carried by LedgerChangedMessage.
const (
	OpAdd         = "add"
	OpEdit        = "edit"
	OpDelete      = "delete"
	OpRecalculate = "recalculate"
)

// LedgerChangedMessage announces that the ledger was mutated and its balances
// recalculated. Consumers re-read the ledger rather than trusting the payload.
type LedgerChangedMessage struct {
	Operation string    `json:"operation"`
	ID        int64     `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(op string, id int64) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Operation: op,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes a message and checks its operation.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Operation {
	case OpAdd, OpEdit, OpDelete, OpRecalculate:
	default:
		return nil, fmt.Errorf("unknown ledger operation %q", msg.Operation)
	}
	return &msg, nil
}

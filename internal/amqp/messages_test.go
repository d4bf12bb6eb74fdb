package amqp

import (
	"testing"
)

func TestLedgerChangedMessageJSON(t *testing.T) {
	msg := NewLedgerChangedMessage(OpDelete, 12)
	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := LedgerChangedMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.Operation != OpDelete || got.ID != 12 || !got.Timestamp.Equal(msg.Timestamp) {
		t.Fatalf("decoded %+v, want %+v", got, msg)
	}
}

func TestLedgerChangedMessageFromJSONRejects(t *testing.T) {
	for _, in := range []string{`not json`, `{}`, `{"operation":"truncate"}`} {
		if _, err := LedgerChangedMessageFromJSON([]byte(in)); err == nil {
			t.Errorf("expected error for %s", in)
		}
	}
}

package amqp

import (
	"encoding/json"
	"time"
)

// CalculationSyncMessage is a lightweight message for exporting a calculation
// to the external ledger. It carries only the ID and version; the worker
// fetches the full calculation from the database.
type CalculationSyncMessage struct {
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCalculationSyncMessage creates a new sync message with just ID and version
func NewCalculationSyncMessage(id, version int64) *CalculationSyncMessage {
	return &CalculationSyncMessage{
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *CalculationSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CalculationSyncMessageFromJSON creates a message from JSON bytes
func CalculationSyncMessageFromJSON(data []byte) (*CalculationSyncMessage, error) {
	var msg CalculationSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	KindSync   = "sync"
	KindDelete = "delete"
)

// MirrorMessage asks the worker to reconcile one transaction with the sheet
// mirror. It carries only the ID; the worker fetches the current row from
// the database so stale payloads can never overwrite fresher data.
type MirrorMessage struct {
	Kind      string    `json:"kind"` // sync or delete
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSyncMessage(id string) *MirrorMessage {
	return &MirrorMessage{Kind: KindSync, ID: id, Timestamp: time.Now()}
}

func NewDeleteMessage(id string) *MirrorMessage {
	return &MirrorMessage{Kind: KindDelete, ID: id, Timestamp: time.Now()}
}

func (m *MirrorMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MirrorMessageFromJSON(data []byte) (*MirrorMessage, error) {
	var msg MirrorMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind != KindSync && msg.Kind != KindDelete {
		return nil, fmt.Errorf("unknown message kind %q", msg.Kind)
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("message missing transaction id")
	}
	return &msg, nil
}

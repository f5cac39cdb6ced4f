package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Change operations carried by DocumentChangeMessage.
const (
	OpSet    = "set"
	OpDelete = "delete"
)

// DocumentChangeMessage announces a write to the document store. It only
// carries the address; the worker reads the current document itself.
type DocumentChangeMessage struct {
	Workspace  string    `json:"workspace"`
	Collection string    `json:"collection"`
	ID         string    `json:"id"`
	Op         string    `json:"op"`
	Version    int64     `json:"version"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewDocumentChangeMessage creates a change message stamped now.
func NewDocumentChangeMessage(workspace, collection, id, op string, version int64) *DocumentChangeMessage {
	return &DocumentChangeMessage{
		Workspace:  workspace,
		Collection: collection,
		ID:         id,
		Op:         op,
		Version:    version,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DocumentChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DocumentChangeMessageFromJSON decodes and checks a message body.
func DocumentChangeMessageFromJSON(data []byte) (*DocumentChangeMessage, error) {
	var msg DocumentChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Collection == "" || msg.ID == "" {
		return nil, fmt.Errorf("change message without collection or id")
	}
	if msg.Op != OpSet && msg.Op != OpDelete {
		return nil, fmt.Errorf("unknown change operation %q", msg.Op)
	}
	return &msg, nil
}

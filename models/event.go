package models

import (
	"encoding/json"
	"time"
)

// ChangeOperation is the kind of mutation a change event describes.
type ChangeOperation string

const (
	ChangeCreated ChangeOperation = "created"
	ChangeUpdated ChangeOperation = "updated"
	ChangeDeleted ChangeOperation = "deleted"
)

// ChangeEvent is published on the bus after every store mutation.
type ChangeEvent struct {
	Collection string          `json:"collection"`
	Operation  ChangeOperation `json:"operation"`
	DocumentID string          `json:"document_id"`
	OwnerID    string          `json:"owner_id,omitempty"`
	// PreviousOwnerID is set when an update moved the document to OwnerID.
	PreviousOwnerID string    `json:"previous_owner_id,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

func NewChangeEvent(collection string, op ChangeOperation, documentID, ownerID string) ChangeEvent {
	return ChangeEvent{
		Collection: collection,
		Operation:  op,
		DocumentID: documentID,
		OwnerID:    ownerID,
		Timestamp:  time.Now().UTC(),
	}
}

// Name follows the <resource>.<action> convention, e.g. "tasks.updated".
func (e ChangeEvent) Name() string {
	return e.Collection + "." + string(e.Operation)
}

// Concerns reports whether the change can affect owner's documents. An
// event without an owner concerns everyone.
func (e ChangeEvent) Concerns(owner string) bool {
	return e.OwnerID == "" || e.OwnerID == owner || e.PreviousOwnerID == owner
}

func (e *ChangeEvent) FromJSON(data []byte) error {
	return json.Unmarshal(data, e)
}

func (e *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// DocumentData is the schemaless field map of a stored document.
type DocumentData map[string]interface{}

// Value implements the driver.Valuer interface for JSONB storage
func (d DocumentData) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for JSONB retrieval
func (d *DocumentData) Scan(value interface{}) error {
	if value == nil {
		*d = make(DocumentData)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, d)
}

// Merge applies a shallow field update. Nil values are stored as null.
func (d DocumentData) Merge(fields map[string]interface{}) DocumentData {
	out := make(DocumentData, len(d)+len(fields))
	for k, v := range d {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// Document is a stored record in the remote document table.
type Document struct {
	ID         string       `gorm:"type:varchar(64);primaryKey" json:"id"`
	Collection string       `gorm:"type:varchar(64);not null;index:idx_documents_owner" json:"collection"`
	OwnerID    string       `gorm:"type:varchar(128);index:idx_documents_owner" json:"owner_id"`
	Data       DocumentData `gorm:"type:jsonb;not null" json:"data"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null" json:"updated_at"`
}

// Fields returns the document data with the id key set, the shape
// subscribers receive in both store modes.
func (d Document) Fields() DocumentData {
	out := d.Data.Merge(nil)
	out["id"] = d.ID
	return out
}

// Decode maps document fields onto a typed struct through JSON.
func (d DocumentData) Decode(target interface{}) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, target)
}

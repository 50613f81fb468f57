package models

import (
	"encoding/json"
	"strings"
)

// Category is the document shape stored in the "categories" collection.
type Category struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Color  string `json:"color"`
}

type CategoryInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (in CategoryInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return newValidationError("name", "is required")
	}
	return nil
}

func (in CategoryInput) Fields(userID string) map[string]interface{} {
	return map[string]interface{}{
		"userId": userID,
		"name":   strings.TrimSpace(in.Name),
		"color":  in.Color,
	}
}

func (c *Category) FromJSON(data []byte) error {
	return json.Unmarshal(data, c)
}

func (c *Category) ToJSON() ([]byte, error) {
	return json.Marshal(c)
}

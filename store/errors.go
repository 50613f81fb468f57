package store

import "errors"

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrStoreClosed       = errors.New("store is closed")
)

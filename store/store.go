// Package store is the document store behind ZenTask: a remote mode backed
// by a SQL database plus a change bus, and a local-mirror mode that keeps
// every document in one blob on local storage.
package store

import (
	"context"
	"reflect"

	"zentask/zentask/models"
)

type Mode string

const (
	ModeRemote Mode = "remote"
	ModeMirror Mode = "mirror"
)

// Collections
const (
	Tasks      = "tasks"
	Categories = "categories"
)

// OwnerField is the document key every user-scoped query filters on.
const OwnerField = "userId"

func knownCollection(collection string) bool {
	return collection == Tasks || collection == Categories
}

// Filter is an equality predicate on a single document field. The zero
// Filter matches every document.
type Filter struct {
	Field string
	Value interface{}
}

func Where(field string, value interface{}) Filter {
	return Filter{Field: field, Value: value}
}

func (f Filter) Match(data models.DocumentData) bool {
	if f.Field == "" {
		return true
	}
	value, ok := data[f.Field]
	if !ok {
		return f.Value == nil
	}
	return reflect.DeepEqual(value, f.Value)
}

// Store is implemented identically by both modes. Subscribe delivers the
// current matching documents once before returning and again after every
// mutation of the collection; subscription errors go to onError.
type Store interface {
	Create(ctx context.Context, collection string, fields map[string]interface{}) (string, error)
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, collection, id string) error
	Subscribe(collection string, filter Filter, onData func([]models.DocumentData), onError func(error)) (unsubscribe func())
	Mode() Mode
	Close() error
}

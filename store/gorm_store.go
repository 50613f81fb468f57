package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"zentask/zentask/broker"
	"zentask/zentask/database"
	"zentask/zentask/models"
)

// GormStore is the remote mode. Documents are rows of the documents table;
// every committed mutation is announced on the bus so that subscribers in
// any process sharing the database re-read their collection.
type GormStore struct {
	db     *database.Database
	bus    broker.Bus
	prefix string
}

func NewGormStore(db *database.Database, bus broker.Bus, prefix string) *GormStore {
	return &GormStore{db: db, bus: bus, prefix: prefix}
}

func (s *GormStore) Mode() Mode {
	return ModeRemote
}

func (s *GormStore) Create(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	if !knownCollection(collection) {
		return "", fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	data := models.DocumentData(fields).Merge(nil)
	delete(data, "id")
	doc := models.Document{
		ID:         uuid.New().String(),
		Collection: collection,
		OwnerID:    ownerOf(data),
		Data:       data,
	}

	err := s.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&doc).Error
	})
	if err != nil {
		log.Printf("Failed to create %s document: %v", collection, err)
		return "", err
	}

	s.signal(collection, models.ChangeCreated, doc.ID, doc.OwnerID, doc.OwnerID)
	return doc.ID, nil
}

func (s *GormStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	if !knownCollection(collection) {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	var doc models.Document
	var previousOwner string
	err := s.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND collection = ?", id, collection).First(&doc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s/%s", ErrDocumentNotFound, collection, id)
			}
			return err
		}

		previousOwner = doc.OwnerID
		doc.Data = doc.Data.Merge(fields)
		delete(doc.Data, "id")
		doc.OwnerID = ownerOf(doc.Data)

		return tx.Model(&doc).Updates(map[string]interface{}{
			"data":     doc.Data,
			"owner_id": doc.OwnerID,
		}).Error
	})
	if err != nil {
		if !errors.Is(err, ErrDocumentNotFound) {
			log.Printf("Failed to update %s document %s: %v", collection, id, err)
		}
		return err
	}

	s.signal(collection, models.ChangeUpdated, id, doc.OwnerID, previousOwner)
	return nil
}

func (s *GormStore) Delete(ctx context.Context, collection, id string) error {
	if !knownCollection(collection) {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	var doc models.Document
	var deleted bool
	err := s.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND collection = ?", id, collection).First(&doc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		result := tx.Delete(&doc)
		deleted = result.RowsAffected > 0
		return result.Error
	})
	if err != nil {
		log.Printf("Failed to delete %s document %s: %v", collection, id, err)
		return err
	}

	if deleted {
		s.signal(collection, models.ChangeDeleted, id, doc.OwnerID, doc.OwnerID)
	}
	return nil
}

func (s *GormStore) signal(collection string, op models.ChangeOperation, id, owner, previousOwner string) {
	event := models.NewChangeEvent(collection, op, id, owner)
	if previousOwner != owner {
		event.PreviousOwnerID = previousOwner
	}
	broker.PublishChange(s.bus, s.prefix, event)
}

func (s *GormStore) query(collection string, filter Filter) ([]models.DocumentData, error) {
	q := s.db.DB.Where("collection = ?", collection)
	if owner, ok := filter.Value.(string); ok && filter.Field == OwnerField {
		q = q.Where("owner_id = ?", owner)
	}

	var rows []models.Document
	if err := q.Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	docs := make([]models.DocumentData, 0, len(rows))
	for _, row := range rows {
		fields := row.Fields()
		if filter.Match(fields) {
			docs = append(docs, fields)
		}
	}
	return docs, nil
}

func (s *GormStore) Subscribe(collection string, filter Filter, onData func([]models.DocumentData), onError func(error)) func() {
	return subscribe(s.bus, s.prefix, collection, filter, func() ([]models.DocumentData, error) {
		if !knownCollection(collection) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
		}
		return s.query(collection, filter)
	}, onData, onError)
}

// Close leaves the database and bus open; they are shared with other
// components and closed by their owner.
func (s *GormStore) Close() error {
	return nil
}

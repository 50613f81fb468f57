package store

import (
	"errors"
	"log"

	"zentask/zentask/broker"
	"zentask/zentask/config"
	"zentask/zentask/database"
)

// ResolveMode picks the store mode for a configuration. Demo mode, whether
// forced through FORCE_MOCK or persisted in local storage, always wins.
func ResolveMode(cfg config.Config, storage LocalStorage) Mode {
	if cfg.ForceMock || (storage != nil && MirrorForced(storage)) {
		return ModeMirror
	}
	switch cfg.StoreMode {
	case string(ModeRemote):
		return ModeRemote
	case string(ModeMirror):
		return ModeMirror
	default:
		if cfg.DatabaseConfigured() {
			return ModeRemote
		}
		return ModeMirror
	}
}

// New builds the store for the resolved mode. db may be nil in mirror mode.
func New(cfg config.Config, db *database.Database, bus broker.Bus, storage LocalStorage) (Store, error) {
	mode := ResolveMode(cfg, storage)
	log.Printf("Using %s document store", mode)

	switch mode {
	case ModeRemote:
		if db == nil {
			return nil, errors.New("remote store mode requires a database")
		}
		return NewGormStore(db, bus, cfg.ChangeSubject), nil
	default:
		if storage == nil {
			return nil, errors.New("mirror store mode requires local storage")
		}
		return NewMirrorStore(storage, bus, cfg.ChangeSubject), nil
	}
}

package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"zentask/zentask/broker"
	"zentask/zentask/database"
)

func setupMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock, *broker.LocalBus) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		DriverName:           "postgres",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	bus := broker.NewLocalBus()
	return NewGormStore(&database.Database{DB: gormDB}, bus, ""), mock, bus
}

func TestGormStoreCreateFailureDoesNotSignal(t *testing.T) {
	s, mock, bus := setupMockStore(t)

	signalled := false
	_, err := bus.Subscribe(broker.ChangeSubject("", Tasks), func(broker.Message) { signalled = true })
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "documents"`)).
		WillReturnError(errors.New("connection refused"))
	mock.ExpectRollback()

	_, err = s.Create(context.Background(), Tasks, taskFields("user-1", "t"))
	assert.Error(t, err)
	assert.False(t, signalled)
}

func TestGormStoreSubscribeQueryError(t *testing.T) {
	s, mock, _ := setupMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "documents"`)).
		WillReturnError(errors.New("permission denied"))

	rec := &recorder{}
	unsubscribe := s.Subscribe(Tasks, Where(OwnerField, "user-1"), rec.onData, rec.onError)
	defer unsubscribe()

	require.Len(t, rec.errs, 1)
	assert.Contains(t, rec.errs[0].Error(), "permission denied")
	assert.Equal(t, 0, rec.count())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStoreUpdateNotFound(t *testing.T) {
	s, mock, _ := setupMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "documents"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "collection", "owner_id", "data", "created_at", "updated_at"}))
	mock.ExpectRollback()

	err := s.Update(context.Background(), Tasks, "missing", map[string]interface{}{"title": "x"})
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

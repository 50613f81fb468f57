package testutils

import (
	"github.com/stretchr/testify/mock"

	"zentask/zentask/database"
	"zentask/zentask/models"
)

// MockUserService is a testify mock of the user service.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) CreateUser(db *database.Database, user models.User) (models.User, error) {
	args := m.Called(user.Email)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockUserService) GetUserById(db *database.Database, id string) (models.User, error) {
	args := m.Called(id)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockUserService) GetUserByEmail(db *database.Database, email string) (models.User, error) {
	args := m.Called(email)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockUserService) UpdateUser(db *database.Database, id string, user models.User) (models.User, error) {
	args := m.Called(id, user.DisplayName)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockUserService) DeleteUser(db *database.Database, id string) error {
	args := m.Called(id)
	return args.Error(0)
}

package services

import (
	"errors"
	"strings"

	"zentask/zentask/database"
	"zentask/zentask/models"

	"gorm.io/gorm"
)

type UserServiceInterface interface {
	CreateUser(db *database.Database, user models.User) (models.User, error)
	GetUserById(db *database.Database, id string) (models.User, error)
	GetUserByEmail(db *database.Database, email string) (models.User, error)
	UpdateUser(db *database.Database, id string, updatedData models.User) (models.User, error)
	DeleteUser(db *database.Database, id string) error
}

type UserService struct{}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) CreateUser(db *database.Database, user models.User) (models.User, error) {
	if db == nil {
		return models.User{}, ErrRemoteModeOnly
	}
	user.Email = normalizeEmail(user.Email)
	if user.Email == "" {
		return models.User{}, ErrInvalidInput
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrResourceExists
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *UserService) GetUserById(db *database.Database, id string) (models.User, error) {
	if db == nil {
		return models.User{}, ErrRemoteModeOnly
	}
	var user models.User
	if err := db.DB.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *UserService) GetUserByEmail(db *database.Database, email string) (models.User, error) {
	if db == nil {
		return models.User{}, ErrRemoteModeOnly
	}
	var user models.User
	if err := db.DB.Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// UpdateUser changes the display name. Email and password are not editable
// through this path.
func (s *UserService) UpdateUser(db *database.Database, id string, updatedData models.User) (models.User, error) {
	if db == nil {
		return models.User{}, ErrRemoteModeOnly
	}
	var user models.User
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		return tx.Model(&user).Update("display_name", strings.TrimSpace(updatedData.DisplayName)).Error
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *UserService) DeleteUser(db *database.Database, id string) error {
	if db == nil {
		return ErrRemoteModeOnly
	}
	return db.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		// Documents are owned by id only; drop them with the account.
		if err := tx.Where("owner_id = ?", user.ID).Delete(&models.Document{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
}

var UserServiceInstance UserServiceInterface = &UserService{}

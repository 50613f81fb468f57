package services

import (
	"errors"
	"strings"
	"time"

	"zentask/zentask/database"
	"zentask/zentask/models"
	"zentask/zentask/store"
	"zentask/zentask/utils/token"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Use the JWTClaims from token package
type JWTClaims = token.JWTClaims

// DemoProfile is the fixed identity used for demo sign-in.
var DemoProfile = models.Profile{
	UID:         "mock-user-123",
	DisplayName: "Zen User (Demo)",
	Email:       "hello@zentask.ai",
	PhotoURL:    "https://api.dicebear.com/7.x/avataaars/svg?seed=Felix",
}

const minPasswordLength = 8

type AuthServiceInterface interface {
	Register(db *database.Database, email, password, displayName string) (models.Profile, error)
	Login(db *database.Database, email, password string) (string, models.Profile, error)
	DemoLogin(storage store.LocalStorage, mode store.Mode) (string, models.Profile, error)
	Logout(storage store.LocalStorage, mode store.Mode) error
	RestoreMirrorUser(storage store.LocalStorage, mode store.Mode) (string, models.Profile, error)
	IssueToken(profile models.Profile) (string, error)
	ValidateToken(tokenString string) (*JWTClaims, error)
	HashPassword(password string) (string, error)
	ComparePasswords(hashedPassword, password string) error
}

type AuthService struct {
	jwtSecret     []byte
	jwtExpiration time.Duration
	users         UserServiceInterface
}

func NewAuthService(jwtSecret string, jwtExpirationHours int) *AuthService {
	return &AuthService{
		jwtSecret:     []byte(jwtSecret),
		jwtExpiration: time.Duration(jwtExpirationHours) * time.Hour,
		users:         UserServiceInstance,
	}
}

func (s *AuthService) Register(db *database.Database, email, password, displayName string) (models.Profile, error) {
	if db == nil {
		return models.Profile{}, ErrRemoteModeOnly
	}
	if len(password) < minPasswordLength {
		return models.Profile{}, ErrInvalidInput
	}
	hash, err := s.HashPassword(password)
	if err != nil {
		return models.Profile{}, err
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = strings.Split(email, "@")[0]
	}
	user, err := s.users.CreateUser(db, models.User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
	})
	if err != nil {
		return models.Profile{}, err
	}
	return user.Profile(), nil
}

func (s *AuthService) Login(db *database.Database, email, password string) (string, models.Profile, error) {
	if db == nil {
		return "", models.Profile{}, ErrRemoteModeOnly
	}
	user, err := s.users.GetUserByEmail(db, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", models.Profile{}, ErrInvalidCredentials
		}
		return "", models.Profile{}, err
	}

	if err := s.ComparePasswords(user.PasswordHash, password); err != nil {
		return "", models.Profile{}, ErrInvalidCredentials
	}

	profile := user.Profile()
	tokenString, err := s.IssueToken(profile)
	if err != nil {
		return "", models.Profile{}, err
	}
	return tokenString, profile, nil
}

// DemoLogin signs in the fixed demo user and persists it as the current
// mirror user. It is only available in mirror mode.
func (s *AuthService) DemoLogin(storage store.LocalStorage, mode store.Mode) (string, models.Profile, error) {
	if mode != store.ModeMirror || storage == nil {
		return "", models.Profile{}, ErrDemoModeOnly
	}
	if err := store.SaveMirrorUser(storage, DemoProfile); err != nil {
		return "", models.Profile{}, err
	}
	tokenString, err := s.IssueToken(DemoProfile)
	if err != nil {
		return "", models.Profile{}, err
	}
	return tokenString, DemoProfile, nil
}

// RestoreMirrorUser signs the persisted mirror user back in, so a demo
// session survives a restart until Logout. ErrUnauthorized when nobody is
// signed in.
func (s *AuthService) RestoreMirrorUser(storage store.LocalStorage, mode store.Mode) (string, models.Profile, error) {
	if mode != store.ModeMirror || storage == nil {
		return "", models.Profile{}, ErrDemoModeOnly
	}
	saved, err := store.MirrorUser(storage)
	if err != nil {
		return "", models.Profile{}, err
	}
	if saved == nil || saved.UID == "" {
		return "", models.Profile{}, ErrUnauthorized
	}
	tokenString, err := s.IssueToken(*saved)
	if err != nil {
		return "", models.Profile{}, err
	}
	return tokenString, *saved, nil
}

// Logout forgets the persisted mirror user. Remote sign-out has nothing
// to clear server side.
func (s *AuthService) Logout(storage store.LocalStorage, mode store.Mode) error {
	if mode != store.ModeMirror || storage == nil {
		return nil
	}
	return store.ClearMirrorUser(storage)
}

func (s *AuthService) IssueToken(profile models.Profile) (string, error) {
	return token.GenerateToken(profile.UID, profile.Email, s.jwtSecret, s.jwtExpiration)
}

// ValidateToken uses the token utility to validate tokens
func (s *AuthService) ValidateToken(tokenString string) (*JWTClaims, error) {
	claims, err := token.ValidateToken(tokenString, s.jwtSecret)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *AuthService) ComparePasswords(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

var AuthServiceInstance AuthServiceInterface

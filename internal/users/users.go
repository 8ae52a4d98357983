package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xelth-com/eckclaims/internal/models"
	"github.com/xelth-com/eckclaims/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials or user not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("user not found")
)

// SignupInput is the payload of a new account
type SignupInput struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Role      string `json:"role"`
}

// Store manages user accounts
type Store struct {
	db *gorm.DB
}

// NewStore creates a user store on db
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Signup creates an account. The first account is always an admin; after
// that only an admin caller may grant a role other than user.
func (s *Store) Signup(ctx context.Context, in SignupInput, callerIsAdmin bool) (*models.UserAccount, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	role := models.RoleUser
	switch in.Role {
	case "", models.RoleUser:
	case models.RoleAdmin:
		if callerIsAdmin {
			role = models.RoleAdmin
		}
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.UserAccount{
		Username:  in.Username,
		Password:  hash,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      role,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken, total int64
		if err := tx.Model(&models.UserAccount{}).Where("username = ?", user.Username).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrUsernameTaken
		}
		if err := tx.Model(&models.UserAccount{}).Count(&total).Error; err != nil {
			return err
		}
		if total == 0 {
			user.Role = models.RoleAdmin
		}
		return tx.Create(&user).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) find(ctx context.Context, username string) (*models.UserAccount, error) {
	var user models.UserAccount
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Get returns the account for username
func (s *Store) Get(ctx context.Context, username string) (*models.UserAccount, error) {
	return s.find(ctx, username)
}

// Authenticate checks a username and password pair
func (s *Store) Authenticate(ctx context.Context, username, password string) (*models.UserAccount, error) {
	user, err := s.find(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ChangePassword replaces the password after verifying the current one
func (s *Store) ChangePassword(ctx context.Context, username, current, next string) error {
	if current == "" || next == "" {
		return fmt.Errorf("%w: current password and new password are required", ErrInvalidInput)
	}
	user, err := s.find(ctx, username)
	if err != nil {
		return err
	}
	if !utils.CheckPasswordHash(current, user.Password) {
		return ErrInvalidCredentials
	}
	hash, err := utils.HashPassword(next)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(user).Update("password", hash).Error
}

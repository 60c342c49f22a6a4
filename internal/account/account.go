// Package account stores user records as a single JSON list in the key-value store.
package account

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kjstillabower/weather-lookup-service/internal/kvstore"
	"github.com/kjstillabower/weather-lookup-service/internal/models"
)

const usersKey = "users"

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid registration")
)

// Registration is the input to Register.
type Registration struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// Store is the account store. Every mutation is a read-modify-write of the whole list,
// serialized within the process by mu.
type Store struct {
	mu          sync.Mutex
	kv          kvstore.Store
	validate    *validator.Validate
	adminEmails map[string]struct{}
	now         func() time.Time
}

// NewStore returns a Store on kv. Emails in adminEmails are registered as admins.
func NewStore(kv kvstore.Store, adminEmails []string) *Store {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		admins[normalizeEmail(e)] = struct{}{}
	}
	return &Store{
		kv:          kv,
		validate:    validator.New(),
		adminEmails: admins,
		now:         time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) load(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if _, err := kvstore.GetJSON(ctx, s.kv, usersKey, &users); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return users, nil
}

func (s *Store) save(ctx context.Context, users []models.User) error {
	if users == nil {
		users = []models.User{}
	}
	if err := kvstore.SetJSON(ctx, s.kv, usersKey, users); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

func indexOf(users []models.User, email string) int {
	for i, u := range users {
		if u.Email == email {
			return i
		}
	}
	return -1
}

// Register validates reg and appends a new user with default preferences.
func (s *Store) Register(ctx context.Context, reg Registration) (models.User, error) {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = normalizeEmail(reg.Email)
	if err := s.validate.Struct(reg); err != nil {
		return models.User{}, fmt.Errorf("%w: %s", ErrInvalidInput, describeValidation(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load(ctx)
	if err != nil {
		return models.User{}, err
	}
	if indexOf(users, reg.Email) >= 0 {
		return models.User{}, ErrEmailTaken
	}
	_, admin := s.adminEmails[reg.Email]
	user := models.User{
		ID:        uuid.New().String(),
		Name:      reg.Name,
		Email:     reg.Email,
		Password:  reg.Password,
		IsAdmin:   admin,
		CreatedAt: s.now().UTC(),
		Settings:  models.DefaultPreferences(),
	}
	if err := s.save(ctx, append(users, user)); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// describeValidation turns validator output into a short user-readable message.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	}
	return field + " is invalid"
}

// FindByEmail returns the user with the given email.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	users, err := s.load(ctx)
	if err != nil {
		return models.User{}, err
	}
	i := indexOf(users, normalizeEmail(email))
	if i < 0 {
		return models.User{}, ErrUserNotFound
	}
	return users[i], nil
}

// Authenticate checks email and password and stamps LastLoginAt on success.
// Unknown email and wrong password both return ErrInvalidCredentials.
func (s *Store) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load(ctx)
	if err != nil {
		return models.User{}, err
	}
	i := indexOf(users, normalizeEmail(email))
	if i < 0 || subtle.ConstantTimeCompare([]byte(users[i].Password), []byte(password)) != 1 {
		return models.User{}, ErrInvalidCredentials
	}
	users[i].LastLoginAt = s.now().UTC()
	if err := s.save(ctx, users); err != nil {
		return models.User{}, err
	}
	return users[i], nil
}

// List returns all users in registration order.
func (s *Store) List(ctx context.Context) ([]models.User, error) {
	return s.load(ctx)
}

// Delete removes the user with the given email.
func (s *Store) Delete(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(users, normalizeEmail(email))
	if i < 0 {
		return ErrUserNotFound
	}
	return s.save(ctx, append(users[:i], users[i+1:]...))
}

// ToggleAdmin flips the admin flag and returns the updated user.
func (s *Store) ToggleAdmin(ctx context.Context, email string) (models.User, error) {
	return s.Modify(ctx, email, func(u *models.User) error {
		u.IsAdmin = !u.IsAdmin
		return nil
	})
}

// Modify applies fn to the stored user and saves the result. fn may return an error to
// abort without writing.
func (s *Store) Modify(ctx context.Context, email string, fn func(*models.User) error) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load(ctx)
	if err != nil {
		return models.User{}, err
	}
	i := indexOf(users, normalizeEmail(email))
	if i < 0 {
		return models.User{}, ErrUserNotFound
	}
	if err := fn(&users[i]); err != nil {
		return models.User{}, err
	}
	if err := s.save(ctx, users); err != nil {
		return models.User{}, err
	}
	return users[i], nil
}

package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common validation errors
var (
	ErrEmptyUserID         = errors.New("user ID cannot be empty")
	ErrEmptyEmail          = errors.New("email cannot be empty")
	ErrPasswordTooShort    = errors.New("password must be at least 12 characters long")
	ErrPasswordTooLong     = errors.New("password must be at most 72 characters long")
	ErrEmptyPassword       = errors.New("password cannot be empty")
	ErrEmptyHashedPassword = errors.New("hashed password cannot be empty")
)

// Password length bounds. The upper bound is bcrypt's practical limit.
const (
	MinPasswordLength = 12
	MaxPasswordLength = 72
)

// User represents a registered user of the service.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	Password       string    `json:"-"` // Plaintext, held only between registration and hashing
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewUser creates a new User with the given email and password, assigns
// a fresh UUID and timestamps, and validates the result. The caller is
// responsible for hashing the password before storing the user.
func NewUser(email, password string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:        uuid.New(),
		Email:     email,
		Password:  password,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}
	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}
	if u.Email == "" {
		return ErrEmptyEmail
	}
	if !validEmail(u.Email) {
		return ErrInvalidEmail
	}

	if u.Password != "" {
		if len(u.Password) < MinPasswordLength {
			return ErrPasswordTooShort
		}
		if len(u.Password) > MaxPasswordLength {
			return ErrPasswordTooLong
		}
		return nil
	}

	// Existing users loaded from the store carry only the hash.
	if u.HashedPassword == "" {
		return ErrEmptyPassword
	}
	return nil
}

// validEmail performs a structural check: a local part, an @, and a
// domain containing an interior dot.
func validEmail(email string) bool {
	local, dom, ok := strings.Cut(email, "@")
	if !ok || local == "" || strings.Contains(dom, "@") {
		return false
	}
	dot := strings.Index(dom, ".")
	return dot > 0 && dot < len(dom)-1
}

package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNewUser(t *testing.T) {
	user, err := NewUser("test@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if user.ID == uuid.Nil {
		t.Error("Expected non-nil UUID")
	}
	if user.Email != "test@example.com" {
		t.Errorf("Expected email test@example.com, got %s", user.Email)
	}
	if user.Password != "correct horse battery" {
		t.Error("Expected plaintext password to be retained for hashing")
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("Expected non-zero timestamps")
	}
}

func TestNewUserValidationErrors(t *testing.T) {
	cases := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"empty email", "", "correct horse battery", ErrEmptyEmail},
		{"bad email", "invalidemail", "correct horse battery", ErrInvalidEmail},
		{"short password", "test@example.com", "short", ErrPasswordTooShort},
		{"empty password", "test@example.com", "", ErrEmptyPassword},
	}

	for _, tc := range cases {
		if _, err := NewUser(tc.email, tc.password); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestUserValidateStoredUser(t *testing.T) {
	user := User{
		ID:             uuid.New(),
		Email:          "test@example.com",
		HashedPassword: "$2a$10$abcdefghijklmnopqrstuv",
	}

	if err := user.Validate(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	missingHash := user
	missingHash.HashedPassword = ""
	if err := missingHash.Validate(); !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("Expected %v, got %v", ErrEmptyPassword, err)
	}

	missingID := user
	missingID.ID = uuid.Nil
	if err := missingID.Validate(); !errors.Is(err, ErrEmptyUserID) {
		t.Errorf("Expected %v, got %v", ErrEmptyUserID, err)
	}
}

func TestValidEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"user.name@example.com",
		"user+tag@example.com",
		"user@sub.example.com",
	}
	invalid := []string{
		"",
		"userexample.com",
		"user@",
		"@example.com",
		"user@.com",
		"user@example",
		"user@example.",
	}

	for _, email := range valid {
		if !validEmail(email) {
			t.Errorf("Expected email %s to be valid", email)
		}
	}
	for _, email := range invalid {
		if validEmail(email) {
			t.Errorf("Expected email %s to be invalid", email)
		}
	}
}

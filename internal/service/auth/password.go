package auth

import "golang.org/x/crypto/bcrypt"

// PasswordVerifier compares a stored password hash against a candidate
// plaintext password.
type PasswordVerifier interface {
	// Compare returns nil when the plaintext password matches the hash.
	Compare(hashedPassword, password string) error
}

// BcryptVerifier implements PasswordVerifier using bcrypt.
type BcryptVerifier struct{}

// NewBcryptVerifier creates a new BcryptVerifier.
func NewBcryptVerifier() *BcryptVerifier {
	return &BcryptVerifier{}
}

// Compare implements the PasswordVerifier interface using bcrypt.
func (v *BcryptVerifier) Compare(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

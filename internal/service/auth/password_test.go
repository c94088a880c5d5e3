package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptVerifierCompare(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("a-long-enough-password"), bcrypt.MinCost)
	require.NoError(t, err)

	v := NewBcryptVerifier()
	assert.NoError(t, v.Compare(string(hash), "a-long-enough-password"))
	assert.Error(t, v.Compare(string(hash), "a-different-password"))
	assert.Error(t, v.Compare("not-a-hash", "a-long-enough-password"))
}

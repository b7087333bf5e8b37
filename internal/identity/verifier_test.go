package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/parley/internal/domain"
)

func TestJWTVerifier_ValidToken(t *testing.T) {
	v := NewJWTVerifier("test-secret", "parley-test")

	token, err := v.Issue("user-123", time.Minute)
	require.NoError(t, err)

	userID, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestJWTVerifier_ExpiredToken(t *testing.T) {
	v := NewJWTVerifier("test-secret", "parley-test")

	token, err := v.Issue("user-123", -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestJWTVerifier_WrongSecret(t *testing.T) {
	signer := NewJWTVerifier("secret-a", "parley-test")
	verifier := NewJWTVerifier("secret-b", "parley-test")

	token, err := signer.Issue("user-123", time.Minute)
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestJWTVerifier_IssuerMismatch(t *testing.T) {
	signer := NewJWTVerifier("test-secret", "someone-else")
	verifier := NewJWTVerifier("test-secret", "parley-test")

	token, err := signer.Issue("user-123", time.Minute)
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestJWTVerifier_Garbage(t *testing.T) {
	v := NewJWTVerifier("test-secret", "")

	for _, cred := range []string{"", "not-a-token", "a.b.c"} {
		_, err := v.Verify(context.Background(), cred)
		assert.True(t, errors.Is(err, domain.ErrUnauthenticated), "credential %q should be rejected", cred)
	}
}

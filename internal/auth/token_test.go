package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintAndVerify(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Minute)

	token, err := issuer.Mint("session-1", "app.voxrelay.io")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "session-1", claims.Subject)
	assert.Equal(t, "app.voxrelay.io", claims.Origin)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewIssuer("secret-a", time.Minute).Mint("s", "app.voxrelay.io")
	require.NoError(t, err)

	_, err = NewIssuer("secret-b", time.Minute).Verify(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Minute)
	base := time.Now()
	issuer.now = func() time.Time { return base }

	token, err := issuer.Mint("s", "app.voxrelay.io")
	require.NoError(t, err)

	issuer.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = issuer.Verify(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Minute)

	_, err := issuer.Verify("not-a-token")
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestEmptySecretGetsRandomOne(t *testing.T) {
	a := NewIssuer("", time.Minute)
	b := NewIssuer("", time.Minute)

	token, err := a.Mint("s", "app.voxrelay.io")
	require.NoError(t, err)

	// Each process-local issuer has its own secret.
	_, err = b.Verify(token)
	assert.Error(t, err)

	_, err = a.Verify(token)
	assert.NoError(t, err)
}

package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/timecard-be/internal/models"
)

var testUser = models.User{ID: "user-123", Username: "alice", Email: "a@x.com"}

func TestGenerateAndVerify(t *testing.T) {
	t.Parallel()
	tokens := NewTokenManager("super-secret", "timecard-test", 7*24*time.Hour)

	tok, err := tokens.Generate(testUser)
	require.NoError(t, err)

	claims, err := tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, 7*24*time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()
	tokens := NewTokenManager("secret", "timecard-test", 7*24*time.Hour)
	issued := time.Now().Add(-8 * 24 * time.Hour)
	tokens.now = func() time.Time { return issued }

	tok, err := tokens.Generate(testUser)
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_StillValidBeforeExpiry(t *testing.T) {
	t.Parallel()
	tokens := NewTokenManager("secret", "timecard-test", 7*24*time.Hour)
	tokens.now = func() time.Time { return time.Now().Add(-6 * 24 * time.Hour) }

	tok, err := tokens.Generate(testUser)
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.Verify(tok)
	assert.NoError(t, err)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()
	tok, err := NewTokenManager("right-secret", "timecard-test", time.Hour).Generate(testUser)
	require.NoError(t, err)

	_, err = NewTokenManager("wrong-secret", "timecard-test", time.Hour).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongIssuer(t *testing.T) {
	t.Parallel()
	tok, err := NewTokenManager("secret", "someone-else", time.Hour).Generate(testUser)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", "timecard-test", time.Hour).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()
	tokens := NewTokenManager("k", "timecard-test", time.Hour)
	for _, raw := range []string{"", "not.a.jwt", "abc", strings.Repeat("x", 40)} {
		_, err := tokens.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", raw)
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	t.Parallel()
	tokens := NewTokenManager("secret", "timecard-test", time.Hour)
	tok, err := tokens.Generate(testUser)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	other, err := tokens.Generate(models.User{ID: "user-999", Email: "b@x.com"})
	require.NoError(t, err)
	forged := parts[0] + "." + strings.Split(other, ".")[1] + "." + parts[2]

	_, err = tokens.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	t.Parallel()
	hash, err := HashPassword("secret1", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.True(t, CheckPassword(hash, "secret1"))
	assert.False(t, CheckPassword(hash, "secret2"))

	again, err := HashPassword("secret1", 4)
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "hashes are salted")
}

func TestHashPasswordRejectsOverlongInput(t *testing.T) {
	_, err := HashPassword(strings.Repeat("p", MaxPasswordBytes+1), 4)
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	hash, err := HashPassword(strings.Repeat("p", MaxPasswordBytes), 4)
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, strings.Repeat("p", MaxPasswordBytes)))
}

func TestIdentityContext(t *testing.T) {
	t.Parallel()
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserID: "u1", Email: "a@x.com"})
	id, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", id.UserID)
}

package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestIssueAndParse(t *testing.T) {
	ti := NewTokenIssuer(testSecret, "campus-events", time.Hour)
	u := &model.User{ID: "user-1", Role: model.RoleFaculty}

	token, expiresAt, err := ti.Issue(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := ti.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, model.RoleFaculty, claims.Role)
}

func TestParseRejects(t *testing.T) {
	ti := NewTokenIssuer(testSecret, "campus-events", time.Hour)
	u := &model.User{ID: "user-1", Role: model.RoleStudent}
	valid, _, err := ti.Issue(u)
	require.NoError(t, err)

	expired := NewTokenIssuer(testSecret, "campus-events", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _, err := expired.Issue(u)
	require.NoError(t, err)

	otherIssuer, _, err := NewTokenIssuer(testSecret, "someone-else", time.Hour).Issue(u)
	require.NoError(t, err)

	otherSecret, _, err := NewTokenIssuer(strings.Repeat("x", 32), "campus-events", time.Hour).Issue(u)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-1", "role": "student", "iss": "campus-events",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badRole, _, err := ti.Issue(&model.User{ID: "user-1", Role: "admin"})
	require.NoError(t, err)

	tests := map[string]string{
		"expired":      expiredToken,
		"issuer":       otherIssuer,
		"secret":       otherSecret,
		"alg none":     noneToken,
		"garbage":      "not-a-token",
		"tampered":     valid + "x",
		"unknown role": badRole,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ti.Parse(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, CheckPassword(hash, "correct horse"))
	assert.ErrorIs(t, CheckPassword(hash, "battery staple"), ErrPasswordMismatch)
	assert.Error(t, CheckPassword("not-a-hash", "x"))
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	_, ok = IdentityFromContext(nil)
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserID: "u1", Role: model.RoleFaculty, Name: "Prof"})
	id, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", id.UserID)
	assert.True(t, id.IsFaculty())

	_, ok = IdentityFromContext(WithIdentity(context.Background(), Identity{}))
	assert.False(t, ok)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"example.com/shopcart/internal/model"
)

func newTestAuth(t *testing.T) (AuthService, func() int64) {
	db := newTestDB(t)
	svc := NewAuthService(db, AuthConfig{JWTSecret: "test-secret", BcryptCost: bcrypt.MinCost, MaxConcurrentHashes: 2})
	users := func() int64 { return countRows(t, db, &model.User{}, "") }
	return svc, users
}

func TestRegisterAndLogin(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	u, err := auth.Register(ctx, "  Ada Lovelace ", " Ada@Example.com ", "s3cret")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "Ada Lovelace", u.Username)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.NotEqual(t, "s3cret", u.PasswordHash)

	got, token, err := auth.Login(ctx, "ADA@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	require.NotEmpty(t, token)

	id, err := auth.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
}

func TestRegister_Validation(t *testing.T) {
	auth, users := newTestAuth(t)
	ctx := context.Background()

	cases := []struct{ name, email, password, field string }{
		{"", "a@b.c", "pw", "fullname"},
		{"A", "  ", "pw", "email"},
		{"A", "a@b.c", "", "password"},
	}
	for _, c := range cases {
		_, err := auth.Register(ctx, c.name, c.email, c.password)
		var ve *ValidationError
		require.True(t, errors.As(err, &ve), c.field)
		assert.Equal(t, c.field, ve.Field)
	}
	assert.Zero(t, users())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	auth, users := newTestAuth(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, "First", "dup@example.com", "pw")
	require.NoError(t, err)
	_, err = auth.Register(ctx, "Second", "DUP@example.com", "other")
	assert.True(t, errors.Is(err, ErrEmailTaken))
	assert.EqualValues(t, 1, users())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()
	_, err := auth.Register(ctx, "Ada", "ada@example.com", "right")
	require.NoError(t, err)

	_, _, err = auth.Login(ctx, "ada@example.com", "wrong")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
	_, _, err = auth.Login(ctx, "nobody@example.com", "right")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
	_, _, err = auth.Login(ctx, "", "right")
	assert.True(t, IsValidation(err))
}

func TestParseToken_Rejects(t *testing.T) {
	auth, _ := newTestAuth(t)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": 1, "typ": "session", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("another-secret"))
	require.NoError(t, err)
	_, err = auth.ParseToken(foreign)
	assert.Error(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": 1, "typ": "session", "exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = auth.ParseToken(expired)
	assert.Error(t, err)

	wrongType, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": 1, "typ": "refresh", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = auth.ParseToken(wrongType)
	assert.Error(t, err)

	_, err = auth.ParseToken("not-a-token")
	assert.Error(t, err)
}

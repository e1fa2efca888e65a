package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func claimsFor(userID uuid.UUID, ttl time.Duration) Claims {
	now := time.Now()
	return Claims{
		UserID: userID,
		Email:  "owner@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
}

func TestValidate(t *testing.T) {
	svc := NewJWTService("secret")
	userID := uuid.New()

	claims, err := svc.Validate(sign(t, jwt.SigningMethodHS256, []byte("secret"), claimsFor(userID, time.Hour)))

	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "owner@example.com", claims.Email)
}

func TestValidateRejects(t *testing.T) {
	svc := NewJWTService("secret")

	for name, token := range map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": sign(t, jwt.SigningMethodHS256, []byte("other-secret"), claimsFor(uuid.New(), time.Hour)),
		"expired":      sign(t, jwt.SigningMethodHS256, []byte("secret"), claimsFor(uuid.New(), -time.Minute)),
		"nil user":     sign(t, jwt.SigningMethodHS256, []byte("secret"), claimsFor(uuid.Nil, time.Hour)),
		"unsigned":     sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, claimsFor(uuid.New(), time.Hour)),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Validate(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

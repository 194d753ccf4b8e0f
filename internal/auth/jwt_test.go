package auth

import (
	"context"
	"testing"
	"time"

	"dmsync/backend/internal/apperrors"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTVerifier_RoundTrip(t *testing.T) {
	v := NewJWTVerifier("secret", "dmsync-service")

	token, err := v.Issue("subject-1", time.Hour)
	require.NoError(t, err)

	id, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "subject-1", id.Subject)
}

func TestJWTVerifier_Rejects(t *testing.T) {
	v := NewJWTVerifier("secret", "dmsync-service")
	ctx := context.Background()

	expired, err := v.Issue("subject-1", -time.Minute)
	require.NoError(t, err)

	otherKey, err := NewJWTVerifier("other", "dmsync-service").Issue("subject-1", time.Hour)
	require.NoError(t, err)

	otherIssuer, err := NewJWTVerifier("secret", "someone-else").Issue("subject-1", time.Hour)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "dmsync-service",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"expired":      expired,
		"wrong key":    otherKey,
		"wrong issuer": otherIssuer,
		"no subject":   noSubject,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(ctx, token)
			assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
		})
	}
}

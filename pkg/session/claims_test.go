package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/gridview/pkg/models"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, claims *Claims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)

	return signed
}

func TestClaimsFromToken(t *testing.T) {
	issued := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	signed := signToken(t, &Claims{
		MaxSeconds: 3600,
		Role:       models.RoleOperator,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(issued),
			Subject:  "alice",
		},
	})

	clock, err := ClaimsFromToken(signed, testSecret)
	require.NoError(t, err)

	assert.True(t, clock.SessionStart.Equal(issued))
	assert.Equal(t, 3600, clock.MaxSeconds)
	assert.Equal(t, models.RoleOperator, clock.Role)
}

func TestClaimsFromTokenBadSignature(t *testing.T) {
	signed := signToken(t, &Claims{
		MaxSeconds: 600,
		Role:       models.RoleViewer,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	})

	_, err := ClaimsFromToken(signed, []byte("wrong-secret"))
	assert.Error(t, err)
}

func TestClaimsFromTokenMissingIssuedAt(t *testing.T) {
	signed := signToken(t, &Claims{MaxSeconds: 600, Role: models.RoleViewer})

	_, err := ClaimsFromToken(signed, testSecret)
	assert.ErrorIs(t, err, errMissingIssuedAt)
}

package jwt_test

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/pkg/jwt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func Test_Manager_RoundTripCarriesVersion(t *testing.T) {
	// arrange
	m := jwt.NewManager(testSecret, time.Hour)

	// act
	token, expiresAt, err := m.GenerateAccessToken("user-1", "a@b.c", 7)
	require.NoError(t, err)
	claims, err := m.ValidateToken(token)

	// assert
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@b.c", claims.Email)
	assert.Equal(t, 7, claims.TokenVersion)
	assert.WithinDuration(t, expiresAt, claims.ExpiresAt.Time, time.Second)
}

func Test_Manager_RejectsExpiredToken(t *testing.T) {
	m := jwt.NewManager(testSecret, -time.Minute)

	token, _, err := m.GenerateAccessToken("user-1", "a@b.c", 0)
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func Test_Manager_RejectsForeignSignature(t *testing.T) {
	issuer := jwt.NewManager("another-secret-another-secret-xx", time.Hour)
	verifier := jwt.NewManager(testSecret, time.Hour)

	token, _, err := issuer.GenerateAccessToken("user-1", "a@b.c", 0)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func Test_Manager_RejectsNoneAlgorithm(t *testing.T) {
	m := jwt.NewManager(testSecret, time.Hour)
	unsigned := gojwt.NewWithClaims(gojwt.SigningMethodNone, jwt.Claims{
		UserID: "user-1",
		RegisteredClaims: gojwt.RegisteredClaims{
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token, err := unsigned.SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func Test_Manager_RejectsGarbage(t *testing.T) {
	m := jwt.NewManager(testSecret, time.Hour)

	_, err := m.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbonmint/pkg/domain"
	dErrors "carbonmint/pkg/domain-errors"
)

var jwtService = NewJWTService("test-signing-key", "test-issuer")
var caller = domain.MustAddress("0x00000000000000000000000000000000000000a1")
var expiresIn = time.Hour

func Test_GenerateAccessToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(caller, expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	got, err := claims.Caller()
	require.NoError(t, err)
	assert.Equal(t, caller, got)
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)
}

func Test_GenerateAccessToken_ZeroCaller(t *testing.T) {
	_, err := jwtService.GenerateAccessToken(domain.Address{}, expiresIn)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(caller, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, "unauthorized: token has expired", err.Error())
}

func Test_ValidateToken_WrongKeyOrIssuer(t *testing.T) {
	other, err := NewJWTService("other-key", "test-issuer").GenerateAccessToken(caller, expiresIn)
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(other)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	foreign, err := NewJWTService("test-signing-key", "someone-else").GenerateAccessToken(caller, expiresIn)
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(foreign)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_NonAddressSubject(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			Issuer:    "test-issuer",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(signed)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_Adapter(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(caller, expiresIn)
	require.NoError(t, err)

	claims, err := NewJWTServiceAdapter(jwtService).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, caller, claims.Caller)
	assert.NotEmpty(t, claims.JTI)
}

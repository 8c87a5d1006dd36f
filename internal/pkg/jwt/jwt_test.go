package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceToken_RoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", "1h")

	token, expiresAt, err := svc.GenerateDeviceToken("E1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotZero(t, expiresAt)

	employeeID, err := svc.ValidateDeviceToken(token)
	require.NoError(t, err)
	assert.Equal(t, "E1", employeeID)
}

func TestDeviceToken_WrongSecret(t *testing.T) {
	token, _, err := NewJWTService("secret-a", "1h").GenerateDeviceToken("E1")
	require.NoError(t, err)

	_, err = NewJWTService("secret-b", "1h").ValidateDeviceToken(token)
	assert.Error(t, err)
}

func TestDeviceToken_Expired(t *testing.T) {
	svc := NewJWTService("test-secret", "-1h")

	token, _, err := svc.GenerateDeviceToken("E1")
	require.NoError(t, err)

	_, err = svc.ValidateDeviceToken(token)
	assert.Error(t, err)
}

func TestDeviceToken_WrongType(t *testing.T) {
	svc := NewJWTService("test-secret", "1h")
	_, token, err := svc.JWTAuth().Encode(map[string]interface{}{"employee_id": "E1", "type": "access"})
	require.NoError(t, err)

	_, err = svc.ValidateDeviceToken(token)
	assert.Error(t, err)
}

func TestGenerateDeviceToken_BadDuration(t *testing.T) {
	_, _, err := NewJWTService("test-secret", "forever").GenerateDeviceToken("E1")
	assert.Error(t, err)
}

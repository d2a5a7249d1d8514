package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	sessionID := NewSessionID()
	expiresAt := time.Now().Add(time.Hour)

	token, err := GenerateAccessToken("user-uid-1", sessionID, expiresAt, secret)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseAccessToken(token, secret)
	require.NoError(t, err)
	require.Equal(t, "user-uid-1", claims.Subject)
	require.Equal(t, sessionID, claims.SessionID)
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken("user-uid-1", NewSessionID(), time.Now().Add(time.Hour), []byte("secret-a"))
	require.NoError(t, err)

	_, err = ParseAccessToken(token, []byte("secret-b"))
	require.Error(t, err)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	token, err := GenerateAccessToken("user-uid-1", NewSessionID(), time.Now().Add(-2*time.Minute), []byte("secret"))
	require.NoError(t, err)

	_, err = ParseAccessToken(token, []byte("secret"))
	require.Error(t, err)
}

func TestGoogleStateRoundTrip(t *testing.T) {
	p := &GoogleProvider{secret: []byte("secret")}

	state, err := p.newState()
	require.NoError(t, err)
	require.NoError(t, p.verifyState(state))

	require.Error(t, p.verifyState(state+"x"))
	require.Error(t, p.verifyState("malformed"))

	other := &GoogleProvider{secret: []byte("other")}
	require.Error(t, other.verifyState(state))
}

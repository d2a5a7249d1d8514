package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
)

const (
	issuer   = "mindgleam"
	audience = "user.access-token"

	// AccessTokenDuration is the lifetime of an access token. The
	// backing user_session row carries the same expiry, so revoking
	// the session invalidates the token early.
	AccessTokenDuration = 7 * 24 * time.Hour
)

// ClaimsMessage are the claims carried by an access token.
type ClaimsMessage struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// NewSessionID returns a new opaque session identifier.
func NewSessionID() string {
	return shortuuid.New()
}

// GenerateAccessToken signs an access token for the given user bound to
// a server-side session.
func GenerateAccessToken(userUID, sessionID string, expiresAt time.Time, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &ClaimsMessage{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			Subject:   userUID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign access token")
	}
	return signed, nil
}

// ParseAccessToken verifies the token signature and standard claims and
// returns the embedded claims.
func ParseAccessToken(tokenString string, secret []byte) (*ClaimsMessage, error) {
	claims := &ClaimsMessage{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		return nil, errors.Wrap(err, "invalid access token")
	}
	if claims.SessionID == "" {
		return nil, errors.New("access token missing session binding")
	}
	return claims, nil
}

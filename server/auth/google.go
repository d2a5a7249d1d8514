package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/mindgleam/mindgleam/internal/profile"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// stateTTL bounds how long a login attempt may take before the state
// parameter expires.
const stateTTL = 10 * time.Minute

// GoogleUser is the subset of Google's userinfo response we keep.
type GoogleUser struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleProvider implements the Google OAuth 2.0 sign-in flow.
type GoogleProvider struct {
	config      *oauth2.Config
	secret      []byte
	userInfoURL string
}

func NewGoogleProvider(profile *profile.Profile) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     profile.GoogleClientID,
			ClientSecret: profile.GoogleClientSecret,
			RedirectURL:  strings.TrimSuffix(profile.InstanceURL, "/") + "/api/auth/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		secret:      []byte(profile.Secret),
		userInfoURL: googleUserInfoURL,
	}
}

// LoginURL returns the Google consent page URL with a signed state.
func (p *GoogleProvider) LoginURL() (string, error) {
	state, err := p.newState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// Exchange trades the authorization code for the user's Google identity.
// The state must be one we issued; this blocks login CSRF.
func (p *GoogleProvider) Exchange(ctx context.Context, state, code string) (*GoogleUser, error) {
	if err := p.verifyState(state); err != nil {
		return nil, fmt.Errorf("invalid state: %w", err)
	}

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	user, err := p.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	return user, nil
}

func (p *GoogleProvider) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*GoogleUser, error) {
	client := p.config.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	user := &GoogleUser{}
	if err := json.Unmarshal(body, user); err != nil {
		return nil, fmt.Errorf("failed to parse user info response: %w", err)
	}
	if user.Sub == "" {
		return nil, fmt.Errorf("empty sub in user info response")
	}
	return user, nil
}

// newState produces "nonce.issued_at.signature" signed with the
// instance secret, so state needs no server-side storage.
func (p *GoogleProvider) newState() (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(nonce) + "." + strconv.FormatInt(time.Now().Unix(), 10)
	return payload + "." + p.signState(payload), nil
}

func (p *GoogleProvider) verifyState(state string) error {
	parts := strings.Split(state, ".")
	if len(parts) != 3 {
		return fmt.Errorf("malformed state")
	}

	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(p.signState(payload)), []byte(parts[2])) {
		return fmt.Errorf("signature mismatch")
	}

	issuedAt, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return fmt.Errorf("malformed issue time")
	}
	if time.Since(time.Unix(issuedAt, 0)) > stateTTL {
		return fmt.Errorf("state expired")
	}
	return nil
}

func (p *GoogleProvider) signState(payload string) string {
	mac := hmac.New(sha256.New, p.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

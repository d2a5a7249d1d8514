package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// AuthEvent describes a change in the signed-in identity.
type AuthEvent string

const (
	SignedIn  AuthEvent = "SIGNED_IN"
	SignedOut AuthEvent = "SIGNED_OUT"
)

// Provider owns identity and balance state. It bootstraps from a
// persisted token, keeps the balance current over a push subscription,
// and notifies listeners when either changes.
type Provider struct {
	client *Client

	// onSignOut runs after a completed sign-out, for the host to
	// reset its UI. May be nil.
	onSignOut func()

	mu        sync.RWMutex
	user      *User
	balance   *Balance
	loading   bool
	listeners []func()

	wsMu     sync.Mutex
	wsCancel context.CancelFunc
	wsDone   chan struct{}
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithSignOutCallback registers a hook invoked after SignOut finishes.
func WithSignOutCallback(fn func()) ProviderOption {
	return func(p *Provider) { p.onSignOut = fn }
}

func NewProvider(client *Client, opts ...ProviderOption) *Provider {
	p := &Provider{client: client, loading: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// User returns the signed-in profile, or nil when anonymous.
func (p *Provider) User() *User {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.user == nil {
		return nil
	}
	user := *p.user
	return &user
}

// Balance returns the last known credit balance, or nil when unknown.
func (p *Provider) Balance() *Balance {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.balance == nil {
		return nil
	}
	balance := *p.balance
	return &balance
}

// Loading reports whether the initial bootstrap is still running.
func (p *Provider) Loading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loading
}

// Subscribe registers a listener called after every state change. It
// returns an unsubscribe func.
func (p *Provider) Subscribe(fn func()) func() {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	index := len(p.listeners) - 1
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if index < len(p.listeners) {
			p.listeners[index] = nil
		}
	}
}

func (p *Provider) notify() {
	p.mu.RLock()
	listeners := make([]func(), len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.RUnlock()
	for _, fn := range listeners {
		if fn != nil {
			fn()
		}
	}
}

// Bootstrap attempts to restore the session from the client's current
// token. Any failure degrades silently to the anonymous state; the
// loading flag clears either way.
func (p *Provider) Bootstrap(ctx context.Context) {
	defer func() {
		p.mu.Lock()
		p.loading = false
		p.mu.Unlock()
		p.notify()
	}()

	if p.client.accessToken() == "" {
		return
	}

	// Profile and balance load in parallel; only the profile fetch is
	// fatal to the restored session.
	user := &User{}
	var balance *Balance
	eg := errgroup.Group{}
	eg.Go(func() error {
		return p.client.do(ctx, http.MethodGet, "/api/me", nil, user)
	})
	eg.Go(func() error {
		b := &Balance{}
		if err := p.client.do(ctx, http.MethodGet, "/api/balance", nil, b); err != nil {
			slog.Debug("initial balance fetch failed", "error", err)
			return nil
		}
		balance = b
		return nil
	})
	if err := eg.Wait(); err != nil {
		slog.Debug("session bootstrap failed", "error", err)
		p.client.SetAccessToken("")
		return
	}

	p.mu.Lock()
	p.user = user
	p.balance = balance
	p.mu.Unlock()

	p.subscribeBalance()
}

// SignInWithGoogle returns the URL the host should navigate to. The
// server handles the whole OAuth exchange and lands back on the app
// with a session cookie.
func (p *Provider) SignInWithGoogle() string {
	return p.client.baseURL + "/api/auth/login"
}

// HandleSignedIn records a fresh session token, loads the profile and
// balance, and starts the push subscription.
func (p *Provider) HandleSignedIn(ctx context.Context, token string) error {
	p.client.SetAccessToken(token)

	user := &User{}
	if err := p.client.do(ctx, http.MethodGet, "/api/me", nil, user); err != nil {
		p.client.SetAccessToken("")
		return errors.Wrap(err, "failed to load profile")
	}

	p.mu.Lock()
	p.user = user
	p.mu.Unlock()
	p.notify()

	if err := p.RefreshBalance(ctx); err != nil {
		slog.Warn("balance fetch after sign-in failed", "error", err)
	}
	p.subscribeBalance()
	return nil
}

// SignOut clears local state first so the UI resets immediately, then
// revokes the server session best-effort. A failed revocation still
// leaves the client signed out.
func (p *Provider) SignOut(ctx context.Context) {
	p.teardownSubscription()

	p.mu.Lock()
	p.user = nil
	p.balance = nil
	p.mu.Unlock()
	p.notify()

	if err := p.client.do(ctx, http.MethodPost, "/api/auth/signout", nil, nil); err != nil {
		slog.Debug("session revocation failed", "error", err)
	}
	p.client.SetAccessToken("")

	if p.onSignOut != nil {
		p.onSignOut()
	}
}

// RefreshBalance refetches the balance and replaces the cached copy
// wholesale. A no-op when anonymous.
func (p *Provider) RefreshBalance(ctx context.Context) error {
	if p.User() == nil {
		return nil
	}

	balance := &Balance{}
	if err := p.client.do(ctx, http.MethodGet, "/api/balance", nil, balance); err != nil {
		return errors.Wrap(err, "failed to fetch balance")
	}

	p.mu.Lock()
	p.balance = balance
	p.mu.Unlock()
	p.notify()
	return nil
}

// UpdateProfile writes the given fields through to the server and
// merges the confirmed result into local state. The local copy is not
// touched until the server accepts the write.
func (p *Provider) UpdateProfile(ctx context.Context, displayName, avatarURL *string) error {
	if p.User() == nil {
		return ErrNotSignedIn
	}

	payload := map[string]any{}
	if displayName != nil {
		payload["display_name"] = *displayName
	}
	if avatarURL != nil {
		payload["avatar_url"] = *avatarURL
	}

	user := &User{}
	if err := p.client.do(ctx, http.MethodPatch, "/api/me", payload, user); err != nil {
		return errors.Wrap(err, "failed to update profile")
	}

	p.mu.Lock()
	p.user = user
	p.mu.Unlock()
	p.notify()
	return nil
}

// subscribeBalance opens the push channel for live balance updates.
// Any previous subscription is torn down first.
func (p *Provider) subscribeBalance() {
	p.teardownSubscription()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.wsMu.Lock()
	p.wsCancel = cancel
	p.wsDone = done
	p.wsMu.Unlock()

	go func() {
		defer close(done)
		p.runSubscription(ctx)
	}()
}

func (p *Provider) teardownSubscription() {
	p.wsMu.Lock()
	cancel, done := p.wsCancel, p.wsDone
	p.wsCancel, p.wsDone = nil, nil
	p.wsMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// TearDown stops the push subscription. Call when discarding the
// provider.
func (p *Provider) TearDown() {
	p.teardownSubscription()
}

func (p *Provider) runSubscription(ctx context.Context) {
	url := wsURL(p.client.baseURL) + "/api/balance/subscribe"
	opts := &websocket.DialOptions{
		HTTPClient: p.client.httpClient,
		HTTPHeader: http.Header{},
	}
	if token := p.client.accessToken(); token != "" {
		opts.HTTPHeader.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := websocket.Dial(ctx, url, opts)
	if err != nil {
		slog.Debug("balance subscription unavailable", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		event := struct {
			Type              string `json:"type"`
			MessagesRemaining int32  `json:"messages_remaining"`
			MoodRemaining     int32  `json:"mood_checkins_remaining"`
			UpdatedTs         int64  `json:"updated_ts"`
		}{}
		if err := json.Unmarshal(data, &event); err != nil || event.Type != "balance" {
			continue
		}

		p.mu.Lock()
		p.balance = &Balance{
			Messages:     event.MessagesRemaining,
			MoodCheckins: event.MoodRemaining,
			UpdatedTs:    event.UpdatedTs,
		}
		p.mu.Unlock()
		p.notify()
	}
}

func wsURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	}
	return baseURL
}

package client

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

const (
	// demoMessageLimit is how many messages an anonymous visitor may
	// send before being asked to sign in. Kept in step with the
	// server's own backstop.
	demoMessageLimit = 3

	fallbackReply     = "I'm sorry, I couldn't come up with a response. Could you try again?"
	errorReply        = "Something went wrong. Please try again."
	demoLimitMessage  = "You've used all your free messages. Sign in to keep chatting!"
	noBalanceMessage  = "You're out of message credits. Visit the plans page to get more."
	defaultAvatarID   = "gigi"
	messageRoleUser   = "user"
	messageRoleAvatar = "assistant"
)

// Message is one turn of the visible transcript.
type Message struct {
	Role    string
	Content string
}

// Manager drives one chat conversation. It holds the visible
// transcript, the demo counter, and the single-flight send guard.
type Manager struct {
	client   *Client
	provider *Provider
	demos    DemoStore

	mu         sync.Mutex
	visible    bool
	demoMode   bool
	avatarID   string
	sessionUID string
	messages   []Message
	lastErr    string
	sending    bool
}

func NewManager(client *Client, provider *Provider, demos DemoStore) *Manager {
	return &Manager{
		client:   client,
		provider: provider,
		demos:    demos,
		avatarID: defaultAvatarID,
	}
}

// SetVisible shows or hides the chat surface without touching the
// transcript, so reopening resumes where the user left off.
func (m *Manager) SetVisible(visible bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visible = visible
}

func (m *Manager) Visible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible
}

// SetAvatar switches the active persona for subsequent sessions.
func (m *Manager) SetAvatar(avatarID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.avatarID = avatarID
}

// StartNewSession clears the transcript and forgets the server-side
// session binding, so the next send opens a fresh conversation.
func (m *Manager) StartNewSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionUID = ""
	m.messages = nil
	m.lastErr = ""
}

// StartDemoMode opens the chat surface in anonymous trial mode. A
// visitor whose persisted allowance is already spent is refused and
// pointed at sign-in instead.
func (m *Manager) StartDemoMode() error {
	if loadDemoUsage(m.demos).Count >= demoMessageLimit {
		m.mu.Lock()
		m.lastErr = demoLimitMessage
		m.mu.Unlock()
		return ErrDemoLimitReached
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.demoMode = true
	m.visible = true
	m.sessionUID = ""
	m.messages = nil
	m.lastErr = ""
	return nil
}

// EndDemoMode leaves trial mode, typically right after a sign-in.
func (m *Manager) EndDemoMode() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.demoMode = false
	m.sessionUID = ""
	m.messages = nil
	m.lastErr = ""
}

func (m *Manager) DemoMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.demoMode
}

// Messages returns a copy of the visible transcript.
func (m *Manager) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// LastError returns the message shown for the most recent failed send,
// empty when the last send succeeded.
func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// SessionUID returns the server-side session the transcript belongs
// to, empty in demo mode or before the first send.
func (m *Manager) SessionUID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionUID
}

// DemoMessagesUsed reads the persisted demo counter.
func (m *Manager) DemoMessagesUsed() int {
	return loadDemoUsage(m.demos).Count
}

// SendMessage runs one turn of the conversation. A blank message is a
// silent no-op. Eligibility is checked before any network traffic:
// demo visitors past their allowance get ErrDemoLimitReached, signed-in
// users with no credits get ErrInsufficientBalance. The user's message
// is appended optimistically and stays in the transcript even when the
// request fails.
func (m *Manager) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	m.mu.Lock()
	if m.sending {
		m.mu.Unlock()
		return ErrSendInFlight
	}

	demo := m.demoMode || m.provider.User() == nil
	if demo {
		if loadDemoUsage(m.demos).Count >= demoMessageLimit {
			m.lastErr = demoLimitMessage
			m.mu.Unlock()
			return ErrDemoLimitReached
		}
	} else {
		balance := m.provider.Balance()
		if balance != nil && balance.Messages <= 0 {
			m.lastErr = noBalanceMessage
			m.mu.Unlock()
			return ErrInsufficientBalance
		}
	}

	m.sending = true
	m.lastErr = ""
	m.messages = append(m.messages, Message{Role: messageRoleUser, Content: text})
	avatarID, sessionUID := m.avatarID, m.sessionUID
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.sending = false
		m.mu.Unlock()
	}()

	payload := map[string]any{
		"message":   text,
		"avatar_id": avatarID,
	}
	if !demo && sessionUID != "" {
		payload["session_uid"] = sessionUID
	}

	result := struct {
		Reply      string `json:"reply"`
		SessionUID string `json:"session_uid"`
		Demo       bool   `json:"demo"`
	}{}
	if err := m.client.do(ctx, http.MethodPost, "/api/chat", payload, &result); err != nil {
		m.recordSendFailure(err)
		return errors.Wrap(err, "failed to send message")
	}

	reply := strings.TrimSpace(result.Reply)
	if reply == "" {
		reply = fallbackReply
	}

	m.mu.Lock()
	m.messages = append(m.messages, Message{Role: messageRoleAvatar, Content: reply})
	if !result.Demo && result.SessionUID != "" {
		m.sessionUID = result.SessionUID
	}
	m.mu.Unlock()

	if result.Demo {
		count := loadDemoUsage(m.demos).Count + 1
		if err := saveDemoUsage(m.demos, count); err != nil {
			slog.Warn("failed to persist demo usage", "error", err)
		}
	} else if err := m.provider.RefreshBalance(ctx); err != nil {
		slog.Debug("balance refresh after send failed", "error", err)
	}
	return nil
}

// recordSendFailure surfaces the server's error message when it sent
// one, or a generic line otherwise. The optimistic user message is
// left in place.
func (m *Manager) recordSendFailure(err error) {
	message := errorReply
	apiErr := &APIError{}
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		message = apiErr.Message
	}

	m.mu.Lock()
	m.lastErr = message
	m.mu.Unlock()
}

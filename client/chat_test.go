package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeServer is a minimal mindgleam API for client tests. It counts
// chat requests so tests can assert that guarded sends never reach
// the network.
type fakeServer struct {
	chatCalls   atomic.Int32
	chatReply   string
	chatStatus  int
	chatMessage string
	sessionUID  string

	server *httptest.Server
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{chatReply: "Hello there!", chatStatus: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		f.chatCalls.Add(1)
		if f.chatStatus != http.StatusOK {
			w.WriteHeader(f.chatStatus)
			fmt.Fprintf(w, `{"message":%q}`, f.chatMessage)
			return
		}

		req := struct {
			Message    string `json:"message"`
			SessionUID string `json:"session_uid"`
		}{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		demo := r.Header.Get("Authorization") == ""
		resp := map[string]any{"reply": f.chatReply, "demo": demo}
		if !demo {
			if f.sessionUID == "" {
				f.sessionUID = "sess-1"
			}
			resp["session_uid"] = f.sessionUID
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/api/me", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"uid": "u-1", "email": "test@example.com"})
	})
	mux.HandleFunc("/api/balance", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"messages_remaining": 20, "mood_checkins_remaining": 10})
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func newTestManager(t *testing.T, f *fakeServer) (*Manager, *Provider) {
	t.Helper()
	c := New(f.server.URL)
	provider := NewProvider(c)
	manager := NewManager(c, provider, NewMemoryStore())
	return manager, provider
}

func TestDemoCounterExhaustsWithoutNetwork(t *testing.T) {
	f := newFakeServer(t)
	manager, _ := newTestManager(t, f)
	require.NoError(t, manager.StartDemoMode())

	for i := 1; i <= 3; i++ {
		require.NoError(t, manager.SendMessage(context.Background(), fmt.Sprintf("message %d", i)))
		require.Equal(t, i, manager.DemoMessagesUsed())
	}
	require.Equal(t, int32(3), f.chatCalls.Load())

	// The fourth send fails before any request is made.
	err := manager.SendMessage(context.Background(), "one more")
	require.ErrorIs(t, err, ErrDemoLimitReached)
	require.Equal(t, int32(3), f.chatCalls.Load())
	require.NotEmpty(t, manager.LastError())
}

func TestDemoCounterSurvivesRestart(t *testing.T) {
	f := newFakeServer(t)
	store := NewMemoryStore()
	require.NoError(t, saveDemoUsage(store, 3))

	c := New(f.server.URL)
	manager := NewManager(c, NewProvider(c), store)

	// A spent allowance blocks trial mode at the door.
	err := manager.StartDemoMode()
	require.ErrorIs(t, err, ErrDemoLimitReached)
	require.False(t, manager.DemoMode())
	require.Equal(t, demoLimitMessage, manager.LastError())

	// Sending anonymously is refused the same way, without network.
	err = manager.SendMessage(context.Background(), "hello")
	require.ErrorIs(t, err, ErrDemoLimitReached)
	require.Equal(t, int32(0), f.chatCalls.Load())
}

func TestSendFailsFastOnEmptyBalance(t *testing.T) {
	f := newFakeServer(t)
	manager, provider := newTestManager(t, f)

	provider.user = &User{UID: "u-1"}
	provider.balance = &Balance{Messages: 0}

	err := manager.SendMessage(context.Background(), "hello")
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.Equal(t, int32(0), f.chatCalls.Load())
	require.NotEmpty(t, manager.LastError())
}

func TestBlankMessageIsSilentNoOp(t *testing.T) {
	f := newFakeServer(t)
	manager, _ := newTestManager(t, f)
	require.NoError(t, manager.StartDemoMode())

	require.NoError(t, manager.SendMessage(context.Background(), "   "))
	require.Equal(t, int32(0), f.chatCalls.Load())
	require.Empty(t, manager.Messages())
}

func TestSignedInSendCapturesSession(t *testing.T) {
	f := newFakeServer(t)
	c := New(f.server.URL, WithAccessToken("token"))
	provider := NewProvider(c)
	provider.user = &User{UID: "u-1"}
	provider.balance = &Balance{Messages: 20}
	manager := NewManager(c, provider, NewMemoryStore())

	require.NoError(t, manager.SendMessage(context.Background(), "hello"))
	require.Equal(t, "sess-1", manager.SessionUID())

	messages := manager.Messages()
	require.Len(t, messages, 2)
	require.Equal(t, "user", messages[0].Role)
	require.Equal(t, "hello", messages[0].Content)
	require.Equal(t, "assistant", messages[1].Role)
	require.Equal(t, "Hello there!", messages[1].Content)

	// Balance was refetched after the successful turn.
	require.NotNil(t, provider.Balance())
	require.Equal(t, int32(20), provider.Balance().Messages)
}

func TestFailedSendKeepsUserMessage(t *testing.T) {
	f := newFakeServer(t)
	f.chatStatus = http.StatusBadGateway
	f.chatMessage = "the model is unavailable"
	manager, _ := newTestManager(t, f)
	require.NoError(t, manager.StartDemoMode())

	err := manager.SendMessage(context.Background(), "hello")
	require.Error(t, err)

	messages := manager.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, "hello", messages[0].Content)
	require.Equal(t, "the model is unavailable", manager.LastError())

	// A failed demo send does not consume the allowance.
	require.Equal(t, 0, manager.DemoMessagesUsed())
}

func TestEmptyReplyGetsFallback(t *testing.T) {
	f := newFakeServer(t)
	f.chatReply = "   "
	manager, _ := newTestManager(t, f)
	require.NoError(t, manager.StartDemoMode())

	require.NoError(t, manager.SendMessage(context.Background(), "hello"))

	messages := manager.Messages()
	require.Len(t, messages, 2)
	require.Equal(t, fallbackReply, messages[1].Content)
}

func TestStartNewSessionClearsTranscript(t *testing.T) {
	f := newFakeServer(t)
	manager, _ := newTestManager(t, f)
	require.NoError(t, manager.StartDemoMode())

	require.NoError(t, manager.SendMessage(context.Background(), "hello"))
	require.NotEmpty(t, manager.Messages())

	manager.StartNewSession()
	require.Empty(t, manager.Messages())
	require.Empty(t, manager.SessionUID())
}

func TestHideAndReopenKeepsTranscript(t *testing.T) {
	f := newFakeServer(t)
	manager, _ := newTestManager(t, f)
	require.NoError(t, manager.StartDemoMode())

	require.NoError(t, manager.SendMessage(context.Background(), "hello"))
	manager.SetVisible(false)
	manager.SetVisible(true)
	require.Len(t, manager.Messages(), 2)
}

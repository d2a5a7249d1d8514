package v1

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mindgleam/mindgleam/internal/avatar"
	"github.com/mindgleam/mindgleam/internal/observability"
	"github.com/mindgleam/mindgleam/server/auth"
	"github.com/mindgleam/mindgleam/store"
)

// demoMessageLimit is the per-visitor message allowance before sign-in.
// The client keeps the authoritative local counter; this value is
// advertised through /api/status so both sides agree.
const demoMessageLimit = 3

// maxMessageLength caps a single chat message.
const maxMessageLength = 2000

type chatRequest struct {
	Message    string `json:"message"`
	AvatarID   string `json:"avatar_id"`
	SessionUID string `json:"session_uid,omitempty"`
}

type chatResponse struct {
	Reply             string `json:"reply"`
	AvatarID          string `json:"avatar_id"`
	SessionUID        string `json:"session_uid,omitempty"`
	Demo              bool   `json:"demo"`
	MessagesRemaining *int32 `json:"messages_remaining,omitempty"`
}

// Chat handles both demo and signed-in conversations. Without a valid
// access token the request runs in demo mode: rate-limited per IP, no
// persistence and no credit spend. Signed-in requests spend one message
// credit before the model is called.
func (s *APIV1Service) Chat(c echo.Context) error {
	req := &chatRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}
	if len(req.Message) > maxMessageLength {
		return echo.NewHTTPError(http.StatusBadRequest, "message is too long")
	}
	if s.AI == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "chat is not configured")
	}

	// Unknown avatar ids fall back to the default persona rather than
	// failing the message.
	persona := avatar.Get(avatar.ID(req.AvatarID))

	user := s.resolveUser(c)
	if user == nil {
		return s.chatDemo(c, req, persona)
	}
	return s.chatSignedIn(c, req, persona, user)
}

// resolveUser returns the signed-in user, or nil for demo mode. A stale
// or invalid token degrades to demo rather than erroring, mirroring how
// the client treats an expired session.
func (s *APIV1Service) resolveUser(c echo.Context) *store.User {
	token := tokenFromRequest(c)
	if token == "" {
		return nil
	}
	claims, err := auth.ParseAccessToken(token, []byte(s.Secret))
	if err != nil {
		return nil
	}
	ctx := c.Request().Context()
	session, err := s.Store.GetUserSession(ctx, claims.SessionID)
	if err != nil || session == nil {
		return nil
	}
	user, err := s.Store.GetUser(ctx, &store.FindUser{ID: &session.UserID})
	if err != nil {
		return nil
	}
	return user
}

func (s *APIV1Service) chatDemo(c echo.Context, req *chatRequest, persona avatar.Avatar) error {
	if !s.demoLimiter.Allow(c.RealIP()) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "demo limit reached, sign in to continue")
	}

	reqCtx := observability.NewRequestContext(slog.Default(), string(persona.ID), 0)
	reqCtx.Info("demo chat message", slog.Int(observability.LogFieldMessageLen, len(req.Message)))

	reply, err := s.AI.Reply(c.Request().Context(), persona, nil, req.Message)
	if err != nil {
		s.Metrics.RecordChatFailure()
		reqCtx.Error("demo chat completion failed", err)
		return echo.NewHTTPError(http.StatusBadGateway, "companion is unavailable right now")
	}

	s.Metrics.RecordChatMessage("demo")
	s.Metrics.RecordChatLatency(reqCtx.Duration())
	return c.JSON(http.StatusOK, &chatResponse{
		Reply:    reply,
		AvatarID: string(persona.ID),
		Demo:     true,
	})
}

func (s *APIV1Service) chatSignedIn(c echo.Context, req *chatRequest, persona avatar.Avatar, user *store.User) error {
	ctx := c.Request().Context()
	reqCtx := observability.NewRequestContext(slog.Default(), string(persona.ID), user.ID)

	session, err := s.resolveChatSession(c, req, persona, user)
	if err != nil {
		return err
	}

	// Spend before the model call. A nil balance means no credit was
	// left, which maps to 402 so the client can route to the paywall.
	balance, err := s.Store.SpendMessageCredit(ctx, user.ID)
	if err != nil {
		reqCtx.Error("failed to spend message credit", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to process message")
	}
	if balance == nil {
		return echo.NewHTTPError(http.StatusPaymentRequired, "out of messages")
	}
	s.Metrics.RecordCreditSpent("message")

	history, err := s.Store.ListChatMessages(ctx, &store.FindChatMessage{SessionID: &session.ID})
	if err != nil {
		reqCtx.Error("failed to load history", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to process message")
	}

	reqCtx.Info("chat message", slog.Int(observability.LogFieldMessageLen, len(req.Message)))
	reply, err := s.AI.Reply(ctx, persona, history, req.Message)
	if err != nil {
		s.Metrics.RecordChatFailure()
		reqCtx.Error("chat completion failed", err)
		// Give the credit back; the user got nothing for it.
		if _, refundErr := s.Store.CreditBalance(ctx, &store.CreditBalance{
			UserID:    user.ID,
			Messages:  1,
			UpdatedTs: time.Now().Unix(),
		}); refundErr != nil {
			reqCtx.Error("failed to refund credit", refundErr)
		}
		return echo.NewHTTPError(http.StatusBadGateway, "companion is unavailable right now")
	}

	now := time.Now().Unix()
	if _, err := s.Store.CreateChatMessage(ctx, &store.ChatMessage{
		UID:       uuid.NewString(),
		SessionID: session.ID,
		Role:      store.ChatMessageRoleUser,
		Content:   req.Message,
		AvatarID:  string(persona.ID),
		CreatedTs: now,
	}); err != nil {
		reqCtx.Error("failed to persist user message", err)
	}
	if _, err := s.Store.CreateChatMessage(ctx, &store.ChatMessage{
		UID:       uuid.NewString(),
		SessionID: session.ID,
		Role:      store.ChatMessageRoleAssistant,
		Content:   reply,
		AvatarID:  string(persona.ID),
		CreatedTs: now,
	}); err != nil {
		reqCtx.Error("failed to persist assistant message", err)
	}
	if _, err := s.Store.UpdateChatSession(ctx, &store.UpdateChatSession{ID: session.ID, UpdatedTs: &now}); err != nil {
		reqCtx.Error("failed to touch session", err)
	}

	s.Hub.BroadcastBalance(ctx, balance)
	s.Metrics.RecordBalanceBroadcast()
	s.Metrics.RecordChatMessage("full")
	s.Metrics.RecordChatLatency(reqCtx.Duration())
	reqCtx.Info("chat completed",
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
		slog.Int("messages_remaining", int(balance.Messages)))

	return c.JSON(http.StatusOK, &chatResponse{
		Reply:             reply,
		AvatarID:          string(persona.ID),
		SessionUID:        session.UID,
		MessagesRemaining: &balance.Messages,
	})
}

// resolveChatSession loads the session the client is continuing, or
// starts a new one. Continuing another user's session is a 404, not a
// 403, to avoid leaking which uids exist.
func (s *APIV1Service) resolveChatSession(c echo.Context, req *chatRequest, persona avatar.Avatar, user *store.User) (*store.ChatSession, error) {
	ctx := c.Request().Context()

	if req.SessionUID != "" {
		session, err := s.Store.GetChatSession(ctx, &store.FindChatSession{UID: &req.SessionUID, UserID: &user.ID})
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to load session")
		}
		if session == nil {
			return nil, echo.NewHTTPError(http.StatusNotFound, "session not found")
		}
		return session, nil
	}

	now := time.Now().Unix()
	session, err := s.Store.CreateChatSession(ctx, &store.ChatSession{
		UID:       uuid.NewString(),
		UserID:    user.ID,
		AvatarID:  string(persona.ID),
		CreatedTs: now,
		UpdatedTs: now,
	})
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to create session")
	}
	return session, nil
}

type chatSessionResponse struct {
	UID       string `json:"uid"`
	AvatarID  string `json:"avatar_id"`
	CreatedTs int64  `json:"created_ts"`
	UpdatedTs int64  `json:"updated_ts"`
}

func (s *APIV1Service) ListChatSessions(c echo.Context) error {
	user := currentUser(c)
	sessions, err := s.Store.ListChatSessions(c.Request().Context(), &store.FindChatSession{UserID: &user.ID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list sessions")
	}

	out := make([]*chatSessionResponse, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, &chatSessionResponse{
			UID:       session.UID,
			AvatarID:  session.AvatarID,
			CreatedTs: session.CreatedTs,
			UpdatedTs: session.UpdatedTs,
		})
	}
	return c.JSON(http.StatusOK, out)
}

type chatMessageResponse struct {
	UID       string `json:"uid"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	AvatarID  string `json:"avatar_id"`
	CreatedTs int64  `json:"created_ts"`
}

func (s *APIV1Service) ListChatMessages(c echo.Context) error {
	user := currentUser(c)
	uid := c.Param("uid")

	session, err := s.Store.GetChatSession(c.Request().Context(), &store.FindChatSession{UID: &uid, UserID: &user.ID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load session")
	}
	if session == nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}

	messages, err := s.Store.ListChatMessages(c.Request().Context(), &store.FindChatMessage{SessionID: &session.ID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list messages")
	}

	out := make([]*chatMessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, &chatMessageResponse{
			UID:       message.UID,
			Role:      string(message.Role),
			Content:   message.Content,
			AvatarID:  message.AvatarID,
			CreatedTs: message.CreatedTs,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *APIV1Service) DeleteChatSession(c echo.Context) error {
	user := currentUser(c)
	uid := c.Param("uid")

	session, err := s.Store.GetChatSession(c.Request().Context(), &store.FindChatSession{UID: &uid, UserID: &user.ID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load session")
	}
	if session == nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}

	if err := s.Store.DeleteChatSession(c.Request().Context(), &store.DeleteChatSession{ID: session.ID}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete session")
	}
	return c.NoContent(http.StatusNoContent)
}

package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mindgleam/mindgleam/store"
)

func postJSON(e http.Handler, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func getJSON(e http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestChatDemoMode(t *testing.T) {
	_, e, _ := newTestService(t, "hello from gigi")

	rec := postJSON(e, "/api/chat", `{"message":"hi","avatar_id":"gigi"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := &chatResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
	require.True(t, resp.Demo)
	require.Equal(t, "hello from gigi", resp.Reply)
	require.Equal(t, "gigi", resp.AvatarID)
	require.Empty(t, resp.SessionUID)
	require.Nil(t, resp.MessagesRemaining)
}

func TestChatDemoUnknownAvatarFallsBack(t *testing.T) {
	_, e, _ := newTestService(t, "hello")

	rec := postJSON(e, "/api/chat", `{"message":"hi","avatar_id":"nonexistent"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := &chatResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
	require.Equal(t, "gigi", resp.AvatarID)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	_, e, _ := newTestService(t, "hello")

	rec := postJSON(e, "/api/chat", `{"message":"   "}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatRejectsOversizeMessage(t *testing.T) {
	_, e, _ := newTestService(t, "hello")

	body, err := json.Marshal(map[string]string{"message": strings.Repeat("a", maxMessageLength+1)})
	require.NoError(t, err)
	rec := postJSON(e, "/api/chat", string(body), "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatUnavailableWithoutAI(t *testing.T) {
	s, e, _ := newTestService(t, "hello")
	s.AI = nil

	rec := postJSON(e, "/api/chat", `{"message":"hi"}`, "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestChatSignedInSpendsCreditAndPersists(t *testing.T) {
	s, e, testStore := newTestService(t, "you got this")
	user, token := signUpTestUser(t, s, testStore)

	rec := postJSON(e, "/api/chat", `{"message":"rough day","avatar_id":"vee"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := &chatResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
	require.False(t, resp.Demo)
	require.Equal(t, "you got this", resp.Reply)
	require.NotEmpty(t, resp.SessionUID)
	require.NotNil(t, resp.MessagesRemaining)
	require.Equal(t, store.InitialMessageGrant-1, *resp.MessagesRemaining)

	// Both sides of the exchange were persisted in order.
	rec = getJSON(e, "/api/chat/sessions/"+resp.SessionUID+"/messages", token)
	require.Equal(t, http.StatusOK, rec.Code)
	messages := []*chatMessageResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &messages))
	require.Len(t, messages, 2)
	require.Equal(t, "USER", messages[0].Role)
	require.Equal(t, "rough day", messages[0].Content)
	require.Equal(t, "ASSISTANT", messages[1].Role)
	require.Equal(t, "you got this", messages[1].Content)

	_ = user
}

func TestChatSignedInContinuesSession(t *testing.T) {
	s, e, testStore := newTestService(t, "reply")
	_, token := signUpTestUser(t, s, testStore)

	rec := postJSON(e, "/api/chat", `{"message":"first","avatar_id":"vee"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	first := &chatResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), first))

	body, err := json.Marshal(map[string]string{
		"message": "second", "avatar_id": "vee", "session_uid": first.SessionUID,
	})
	require.NoError(t, err)
	rec = postJSON(e, "/api/chat", string(body), token)
	require.Equal(t, http.StatusOK, rec.Code)
	second := &chatResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), second))
	require.Equal(t, first.SessionUID, second.SessionUID)

	rec = getJSON(e, "/api/chat/sessions/"+first.SessionUID+"/messages", token)
	messages := []*chatMessageResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &messages))
	require.Len(t, messages, 4)
}

func TestChatSignedInOutOfCredits(t *testing.T) {
	s, e, testStore := newTestService(t, "reply")
	user, token := signUpTestUser(t, s, testStore)

	// Drain the grant.
	for i := int32(0); i < store.InitialMessageGrant; i++ {
		balance, err := testStore.SpendMessageCredit(context.Background(), user.ID)
		require.NoError(t, err)
		require.NotNil(t, balance)
	}

	rec := postJSON(e, "/api/chat", `{"message":"one more"}`, token)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestChatUnknownSessionIs404(t *testing.T) {
	s, e, testStore := newTestService(t, "reply")
	_, token := signUpTestUser(t, s, testStore)

	rec := postJSON(e, "/api/chat", `{"message":"hi","session_uid":"does-not-exist"}`, token)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatStaleTokenDegradesToDemo(t *testing.T) {
	_, e, _ := newTestService(t, "hello")

	rec := postJSON(e, "/api/chat", `{"message":"hi"}`, "not-a-valid-token")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := &chatResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
	require.True(t, resp.Demo)
}

func TestDeleteChatSession(t *testing.T) {
	s, e, testStore := newTestService(t, "reply")
	_, token := signUpTestUser(t, s, testStore)

	rec := postJSON(e, "/api/chat", `{"message":"hi","avatar_id":"lumo"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := &chatResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))

	req := httptest.NewRequest(http.MethodDelete, "/api/chat/sessions/"+resp.SessionUID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	del := httptest.NewRecorder()
	e.ServeHTTP(del, req)
	require.Equal(t, http.StatusNoContent, del.Code)

	rec = getJSON(e, "/api/chat/sessions/"+resp.SessionUID+"/messages", token)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mindgleam/mindgleam/store"
)

func TestCreateMoodCheckin(t *testing.T) {
	s, e, testStore := newTestService(t, "reply")
	_, token := signUpTestUser(t, s, testStore)

	rec := postJSON(e, "/api/mood", `{"mood":"Good","note":"slept well"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := &moodCheckinResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
	require.Equal(t, "good", resp.Mood)
	require.Equal(t, "slept well", resp.Note)
	require.NotEmpty(t, resp.UID)
	require.NotNil(t, resp.MoodCheckinsRemaining)
	require.Equal(t, store.InitialMoodCheckinGrant-1, *resp.MoodCheckinsRemaining)
}

func TestCreateMoodCheckinRejectsUnknownMood(t *testing.T) {
	s, e, testStore := newTestService(t, "reply")
	_, token := signUpTestUser(t, s, testStore)

	rec := postJSON(e, "/api/mood", `{"mood":"ecstatic"}`, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateMoodCheckinOutOfCredits(t *testing.T) {
	s, e, testStore := newTestService(t, "reply")
	user, token := signUpTestUser(t, s, testStore)

	for i := int32(0); i < store.InitialMoodCheckinGrant; i++ {
		balance, err := testStore.SpendMoodCheckinCredit(context.Background(), user.ID)
		require.NoError(t, err)
		require.NotNil(t, balance)
	}

	rec := postJSON(e, "/api/mood", `{"mood":"okay"}`, token)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestListMoodCheckins(t *testing.T) {
	s, e, testStore := newTestService(t, "reply")
	_, token := signUpTestUser(t, s, testStore)

	for _, mood := range []string{"good", "low", "great"} {
		rec := postJSON(e, "/api/mood", `{"mood":"`+mood+`"}`, token)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := getJSON(e, "/api/mood?limit=2", token)
	require.Equal(t, http.StatusOK, rec.Code)

	checkins := []*moodCheckinResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &checkins))
	require.Len(t, checkins, 2)
}

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBootstrapWithoutTokenFinishesAnonymous(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	}))
	defer server.Close()

	provider := NewProvider(New(server.URL))
	require.True(t, provider.Loading())

	provider.Bootstrap(context.Background())
	require.False(t, provider.Loading())
	require.Nil(t, provider.User())
}

func TestBootstrapWithStaleTokenDegradesSilently(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"session revoked"}`))
	}))
	defer server.Close()

	c := New(server.URL, WithAccessToken("stale"))
	provider := NewProvider(c)
	provider.Bootstrap(context.Background())

	require.False(t, provider.Loading())
	require.Nil(t, provider.User())
	// The stale token is discarded so later requests go out anonymous.
	require.Empty(t, c.accessToken())
}

func TestSignOutClearsStateEvenWhenServerFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(server.URL, WithAccessToken("token"))
	signedOut := false
	provider := NewProvider(c, WithSignOutCallback(func() { signedOut = true }))
	provider.user = &User{UID: "u-1"}
	provider.balance = &Balance{Messages: 5}

	provider.SignOut(context.Background())

	require.Nil(t, provider.User())
	require.Nil(t, provider.Balance())
	require.Empty(t, c.accessToken())
	require.True(t, signedOut)
}

func TestUpdateProfileMergesAfterConfirmedWrite(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/api/me", r.URL.Path)

		req := map[string]string{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "Sam", req["display_name"])

		json.NewEncoder(w).Encode(map[string]string{
			"uid":          "u-1",
			"email":        "sam@example.com",
			"display_name": "Sam",
		})
	}))
	defer server.Close()

	c := New(server.URL, WithAccessToken("token"))
	provider := NewProvider(c)
	provider.user = &User{UID: "u-1", Email: "sam@example.com", DisplayName: "Old Name"}

	name := "Sam"
	require.NoError(t, provider.UpdateProfile(context.Background(), &name, nil))
	require.Equal(t, "Sam", provider.User().DisplayName)
}

func TestUpdateProfileRejectedKeepsLocalState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"no fields to update"}`))
	}))
	defer server.Close()

	c := New(server.URL, WithAccessToken("token"))
	provider := NewProvider(c)
	provider.user = &User{UID: "u-1", DisplayName: "Old Name"}

	name := "New Name"
	err := provider.UpdateProfile(context.Background(), &name, nil)
	require.Error(t, err)
	require.Equal(t, "Old Name", provider.User().DisplayName)
}

func TestBootstrapLoadsProfileAndBalanceTogether(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/me", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"uid": "u-1", "email": "sam@example.com"})
	})
	mux.HandleFunc("/api/balance", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"messages_remaining": 17, "mood_checkins_remaining": 4})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(server.URL, WithAccessToken("token"))
	provider := NewProvider(c)
	defer provider.TearDown()

	provider.Bootstrap(context.Background())
	require.False(t, provider.Loading())
	require.NotNil(t, provider.User())
	require.Equal(t, "u-1", provider.User().UID)
	require.NotNil(t, provider.Balance())
	require.Equal(t, int32(17), provider.Balance().Messages)
}

package v1

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/mindgleam/mindgleam/internal/profile"
	"github.com/mindgleam/mindgleam/server/ai"
	"github.com/mindgleam/mindgleam/server/auth"
	"github.com/mindgleam/mindgleam/store"
)

// memDriver is an in-memory store.Driver for handler tests.
type memDriver struct {
	mu sync.Mutex

	nextID       int32
	users        map[int32]*store.User
	sessions     map[string]*store.UserSession
	balances     map[int32]*store.Balance
	chatSessions map[int32]*store.ChatSession
	chatMessages map[int32]*store.ChatMessage
	moodCheckins map[int32]*store.MoodCheckin
}

func newMemDriver() *memDriver {
	return &memDriver{
		users:        make(map[int32]*store.User),
		sessions:     make(map[string]*store.UserSession),
		balances:     make(map[int32]*store.Balance),
		chatSessions: make(map[int32]*store.ChatSession),
		chatMessages: make(map[int32]*store.ChatMessage),
		moodCheckins: make(map[int32]*store.MoodCheckin),
	}
}

func (d *memDriver) nextid() int32 {
	d.nextID++
	return d.nextID
}

func (d *memDriver) GetDB() *sql.DB { return nil }
func (d *memDriver) Close() error   { return nil }

func (d *memDriver) IsInitialized(context.Context) (bool, error) { return true, nil }

func (d *memDriver) CreateUser(_ context.Context, create *store.User) (*store.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	create.ID = d.nextid()
	clone := *create
	d.users[create.ID] = &clone
	return create, nil
}

func (d *memDriver) UpdateUser(_ context.Context, update *store.UpdateUser) (*store.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[update.ID]
	if !ok {
		return nil, fmt.Errorf("user not found")
	}
	if update.Email != nil {
		user.Email = *update.Email
	}
	if update.DisplayName != nil {
		user.DisplayName = *update.DisplayName
	}
	if update.AvatarURL != nil {
		user.AvatarURL = *update.AvatarURL
	}
	if update.UpdatedTs != nil {
		user.UpdatedTs = *update.UpdatedTs
	}
	clone := *user
	return &clone, nil
}

func (d *memDriver) ListUsers(_ context.Context, find *store.FindUser) ([]*store.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := []*store.User{}
	for _, user := range d.users {
		if find.ID != nil && user.ID != *find.ID {
			continue
		}
		if find.UID != nil && user.UID != *find.UID {
			continue
		}
		if find.GoogleSub != nil && user.GoogleSub != *find.GoogleSub {
			continue
		}
		if find.Email != nil && user.Email != *find.Email {
			continue
		}
		clone := *user
		list = append(list, &clone)
	}
	return list, nil
}

func (d *memDriver) DeleteUser(_ context.Context, del *store.DeleteUser) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[del.ID]; !ok {
		return fmt.Errorf("user not found")
	}
	delete(d.users, del.ID)
	return nil
}

func (d *memDriver) CreateUserSession(_ context.Context, create *store.UserSession) (*store.UserSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	clone := *create
	d.sessions[create.ID] = &clone
	return create, nil
}

func (d *memDriver) ListUserSessions(_ context.Context, find *store.FindUserSession) ([]*store.UserSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := []*store.UserSession{}
	for _, session := range d.sessions {
		if find.ID != nil && session.ID != *find.ID {
			continue
		}
		if find.UserID != nil && session.UserID != *find.UserID {
			continue
		}
		clone := *session
		list = append(list, &clone)
	}
	return list, nil
}

func (d *memDriver) DeleteUserSession(_ context.Context, del *store.DeleteUserSession) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, session := range d.sessions {
		if del.ID != nil && session.ID != *del.ID {
			continue
		}
		if del.UserID != nil && session.UserID != *del.UserID {
			continue
		}
		delete(d.sessions, id)
	}
	return nil
}

func (d *memDriver) GetBalance(_ context.Context, find *store.FindBalance) (*store.Balance, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	balance, ok := d.balances[find.UserID]
	if !ok {
		return nil, nil
	}
	clone := *balance
	return &clone, nil
}

func (d *memDriver) InitializeBalance(_ context.Context, balance *store.Balance) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.balances[balance.UserID]; ok {
		return false, nil
	}
	clone := *balance
	d.balances[balance.UserID] = &clone
	return true, nil
}

func (d *memDriver) SpendMessageCredit(_ context.Context, userID int32, updatedTs int64) (*store.Balance, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	balance, ok := d.balances[userID]
	if !ok || balance.Messages <= 0 {
		return nil, nil
	}
	balance.Messages--
	balance.UpdatedTs = updatedTs
	clone := *balance
	return &clone, nil
}

func (d *memDriver) SpendMoodCheckinCredit(_ context.Context, userID int32, updatedTs int64) (*store.Balance, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	balance, ok := d.balances[userID]
	if !ok || balance.MoodCheckins <= 0 {
		return nil, nil
	}
	balance.MoodCheckins--
	balance.UpdatedTs = updatedTs
	clone := *balance
	return &clone, nil
}

func (d *memDriver) CreditBalance(_ context.Context, credit *store.CreditBalance) (*store.Balance, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	balance, ok := d.balances[credit.UserID]
	if !ok {
		balance = &store.Balance{UserID: credit.UserID}
		d.balances[credit.UserID] = balance
	}
	balance.Messages += credit.Messages
	balance.MoodCheckins += credit.MoodCheckins
	balance.UpdatedTs = credit.UpdatedTs
	clone := *balance
	return &clone, nil
}

func (d *memDriver) CreateChatSession(_ context.Context, create *store.ChatSession) (*store.ChatSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	create.ID = d.nextid()
	clone := *create
	d.chatSessions[create.ID] = &clone
	return create, nil
}

func (d *memDriver) ListChatSessions(_ context.Context, find *store.FindChatSession) ([]*store.ChatSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := []*store.ChatSession{}
	for _, session := range d.chatSessions {
		if find.ID != nil && session.ID != *find.ID {
			continue
		}
		if find.UID != nil && session.UID != *find.UID {
			continue
		}
		if find.UserID != nil && session.UserID != *find.UserID {
			continue
		}
		clone := *session
		list = append(list, &clone)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedTs > list[j].UpdatedTs })
	return list, nil
}

func (d *memDriver) UpdateChatSession(_ context.Context, update *store.UpdateChatSession) (*store.ChatSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	session, ok := d.chatSessions[update.ID]
	if !ok {
		return nil, fmt.Errorf("chat session not found")
	}
	if update.UpdatedTs != nil {
		session.UpdatedTs = *update.UpdatedTs
	}
	clone := *session
	return &clone, nil
}

func (d *memDriver) DeleteChatSession(_ context.Context, del *store.DeleteChatSession) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.chatSessions[del.ID]; !ok {
		return fmt.Errorf("chat session not found")
	}
	delete(d.chatSessions, del.ID)
	for id, message := range d.chatMessages {
		if message.SessionID == del.ID {
			delete(d.chatMessages, id)
		}
	}
	return nil
}

func (d *memDriver) CreateChatMessage(_ context.Context, create *store.ChatMessage) (*store.ChatMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	create.ID = d.nextid()
	clone := *create
	d.chatMessages[create.ID] = &clone
	return create, nil
}

func (d *memDriver) ListChatMessages(_ context.Context, find *store.FindChatMessage) ([]*store.ChatMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := []*store.ChatMessage{}
	for _, message := range d.chatMessages {
		if find.ID != nil && message.ID != *find.ID {
			continue
		}
		if find.UID != nil && message.UID != *find.UID {
			continue
		}
		if find.SessionID != nil && message.SessionID != *find.SessionID {
			continue
		}
		clone := *message
		list = append(list, &clone)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (d *memDriver) DeleteChatMessage(_ context.Context, del *store.DeleteChatMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if del.SessionID == nil {
		return fmt.Errorf("no condition to delete")
	}
	for id, message := range d.chatMessages {
		if message.SessionID == *del.SessionID {
			delete(d.chatMessages, id)
		}
	}
	return nil
}

func (d *memDriver) CreateMoodCheckin(_ context.Context, create *store.MoodCheckin) (*store.MoodCheckin, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	create.ID = d.nextid()
	clone := *create
	d.moodCheckins[create.ID] = &clone
	return create, nil
}

func (d *memDriver) ListMoodCheckins(_ context.Context, find *store.FindMoodCheckin) ([]*store.MoodCheckin, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := []*store.MoodCheckin{}
	for _, checkin := range d.moodCheckins {
		if find.ID != nil && checkin.ID != *find.ID {
			continue
		}
		if find.UserID != nil && checkin.UserID != *find.UserID {
			continue
		}
		clone := *checkin
		list = append(list, &clone)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedTs > list[j].CreatedTs })
	if find.Limit != nil && len(list) > *find.Limit {
		list = list[:*find.Limit]
	}
	return list, nil
}

var _ store.Driver = (*memDriver)(nil)

// newTestService wires an APIV1Service onto an in-memory store, with
// chat completions served by a stub model endpoint.
func newTestService(t *testing.T, reply string) (*APIV1Service, *echo.Echo, *store.Store) {
	t.Helper()

	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, reply)
	}))
	t.Cleanup(stub.Close)

	testProfile := &profile.Profile{
		Mode:        "dev",
		Port:        8081,
		Driver:      "sqlite",
		Version:     "test",
		InstanceURL: "http://localhost:8081",
		Secret:      "test-secret",
		AIEnabled:   true,
		AIBaseURL:   stub.URL,
		AIAPIKey:    "test-key",
	}

	testStore := store.New(newMemDriver(), testProfile)
	t.Cleanup(func() { _ = testStore.Close() })

	service := NewAPIV1Service(testProfile.Secret, testProfile, testStore)
	provider, err := ai.NewProvider(&ai.Config{BaseURL: stub.URL, APIKey: "test-key", MaxRetries: 1})
	require.NoError(t, err)
	service.AI = provider

	e := echo.New()
	service.RegisterRoutes(e)
	return service, e, testStore
}

// signUpTestUser creates a user with its initial grant and returns a
// bearer token for it.
func signUpTestUser(t *testing.T, s *APIV1Service, testStore *store.Store) (*store.User, string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	user, err := testStore.CreateUser(ctx, &store.User{
		UID:         "test-user-uid",
		GoogleSub:   "google-sub-1",
		Email:       "test@example.com",
		DisplayName: "Test User",
		CreatedTs:   now.Unix(),
		UpdatedTs:   now.Unix(),
	})
	require.NoError(t, err)

	_, err = testStore.InitializeBalance(ctx, &store.Balance{
		UserID:       user.ID,
		Messages:     store.InitialMessageGrant,
		MoodCheckins: store.InitialMoodCheckinGrant,
		UpdatedTs:    now.Unix(),
	})
	require.NoError(t, err)

	expiresAt := now.Add(auth.AccessTokenDuration)
	session, err := testStore.CreateUserSession(ctx, &store.UserSession{
		ID:        auth.NewSessionID(),
		UserID:    user.ID,
		CreatedTs: now.Unix(),
		ExpiresTs: expiresAt.Unix(),
	})
	require.NoError(t, err)

	token, err := auth.GenerateAccessToken(user.UID, session.ID, expiresAt, []byte(s.Secret))
	require.NoError(t, err)
	return user, token
}

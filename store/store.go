package store

import (
	"context"
	"fmt"
	"time"

	"github.com/mindgleam/mindgleam/internal/profile"
	"github.com/mindgleam/mindgleam/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// Caches
	userCache    *cache.Cache // keyed by user id
	balanceCache *cache.Cache // keyed by user id
	sessionCache *cache.Cache // keyed by session id
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	cacheConfig := cache.Config{
		DefaultTTL:      10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		MaxItems:        1000,
	}

	return &Store{
		driver:       driver,
		profile:      profile,
		userCache:    cache.New(cacheConfig),
		balanceCache: cache.New(cacheConfig),
		sessionCache: cache.New(cacheConfig),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	s.userCache.Close()
	s.balanceCache.Close()
	s.sessionCache.Close()

	return s.driver.Close()
}

func userCacheKey(id int32) string    { return fmt.Sprintf("user:%d", id) }
func balanceCacheKey(id int32) string { return fmt.Sprintf("balance:%d", id) }

func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	user, err := s.driver.CreateUser(ctx, create)
	if err != nil {
		return nil, err
	}
	s.userCache.Set(userCacheKey(user.ID), user)
	return user, nil
}

func (s *Store) UpdateUser(ctx context.Context, update *UpdateUser) (*User, error) {
	user, err := s.driver.UpdateUser(ctx, update)
	if err != nil {
		return nil, err
	}
	s.userCache.Set(userCacheKey(user.ID), user)
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context, find *FindUser) ([]*User, error) {
	return s.driver.ListUsers(ctx, find)
}

// GetUser returns the single user matching find, or nil when none does.
func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	if find.ID != nil {
		if cached, ok := s.userCache.Get(userCacheKey(*find.ID)); ok {
			return cached.(*User), nil
		}
	}

	list, err := s.driver.ListUsers(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	user := list[0]
	s.userCache.Set(userCacheKey(user.ID), user)
	return user, nil
}

func (s *Store) DeleteUser(ctx context.Context, delete *DeleteUser) error {
	if err := s.driver.DeleteUser(ctx, delete); err != nil {
		return err
	}
	s.userCache.Delete(userCacheKey(delete.ID))
	s.balanceCache.Delete(balanceCacheKey(delete.ID))
	return nil
}

func (s *Store) CreateUserSession(ctx context.Context, create *UserSession) (*UserSession, error) {
	session, err := s.driver.CreateUserSession(ctx, create)
	if err != nil {
		return nil, err
	}
	s.sessionCache.Set(session.ID, session)
	return session, nil
}

// GetUserSession returns the session with the given id, or nil when it does
// not exist or is expired.
func (s *Store) GetUserSession(ctx context.Context, id string) (*UserSession, error) {
	if cached, ok := s.sessionCache.Get(id); ok {
		session := cached.(*UserSession)
		if session.ExpiresTs > time.Now().Unix() {
			return session, nil
		}
		s.sessionCache.Delete(id)
		return nil, nil
	}

	list, err := s.driver.ListUserSessions(ctx, &FindUserSession{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	session := list[0]
	if session.ExpiresTs <= time.Now().Unix() {
		return nil, nil
	}
	s.sessionCache.Set(session.ID, session)
	return session, nil
}

func (s *Store) DeleteUserSession(ctx context.Context, delete *DeleteUserSession) error {
	if err := s.driver.DeleteUserSession(ctx, delete); err != nil {
		return err
	}
	if delete.ID != nil {
		s.sessionCache.Delete(*delete.ID)
	}
	return nil
}

func (s *Store) GetBalance(ctx context.Context, find *FindBalance) (*Balance, error) {
	if cached, ok := s.balanceCache.Get(balanceCacheKey(find.UserID)); ok {
		return cached.(*Balance), nil
	}

	balance, err := s.driver.GetBalance(ctx, find)
	if err != nil {
		return nil, err
	}
	if balance != nil {
		s.balanceCache.Set(balanceCacheKey(find.UserID), balance)
	}
	return balance, nil
}

// InitializeBalance grants the sign-up credits iff the user has no balance
// row yet. Returns whether the row was created; a duplicate sign-in event
// reports false and writes nothing.
func (s *Store) InitializeBalance(ctx context.Context, balance *Balance) (bool, error) {
	created, err := s.driver.InitializeBalance(ctx, balance)
	if err != nil {
		return false, err
	}
	if created {
		s.balanceCache.Set(balanceCacheKey(balance.UserID), balance)
	}
	return created, nil
}

func (s *Store) SpendMessageCredit(ctx context.Context, userID int32) (*Balance, error) {
	balance, err := s.driver.SpendMessageCredit(ctx, userID, time.Now().Unix())
	if err != nil {
		return nil, err
	}
	if balance != nil {
		s.balanceCache.Set(balanceCacheKey(userID), balance)
	} else {
		s.balanceCache.Delete(balanceCacheKey(userID))
	}
	return balance, nil
}

func (s *Store) SpendMoodCheckinCredit(ctx context.Context, userID int32) (*Balance, error) {
	balance, err := s.driver.SpendMoodCheckinCredit(ctx, userID, time.Now().Unix())
	if err != nil {
		return nil, err
	}
	if balance != nil {
		s.balanceCache.Set(balanceCacheKey(userID), balance)
	} else {
		s.balanceCache.Delete(balanceCacheKey(userID))
	}
	return balance, nil
}

func (s *Store) CreditBalance(ctx context.Context, credit *CreditBalance) (*Balance, error) {
	balance, err := s.driver.CreditBalance(ctx, credit)
	if err != nil {
		return nil, err
	}
	s.balanceCache.Set(balanceCacheKey(credit.UserID), balance)
	return balance, nil
}

func (s *Store) CreateChatSession(ctx context.Context, create *ChatSession) (*ChatSession, error) {
	return s.driver.CreateChatSession(ctx, create)
}

func (s *Store) ListChatSessions(ctx context.Context, find *FindChatSession) ([]*ChatSession, error) {
	return s.driver.ListChatSessions(ctx, find)
}

// GetChatSession returns the single session matching find, or nil.
func (s *Store) GetChatSession(ctx context.Context, find *FindChatSession) (*ChatSession, error) {
	list, err := s.driver.ListChatSessions(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateChatSession(ctx context.Context, update *UpdateChatSession) (*ChatSession, error) {
	return s.driver.UpdateChatSession(ctx, update)
}

func (s *Store) DeleteChatSession(ctx context.Context, delete *DeleteChatSession) error {
	return s.driver.DeleteChatSession(ctx, delete)
}

func (s *Store) CreateChatMessage(ctx context.Context, create *ChatMessage) (*ChatMessage, error) {
	return s.driver.CreateChatMessage(ctx, create)
}

func (s *Store) ListChatMessages(ctx context.Context, find *FindChatMessage) ([]*ChatMessage, error) {
	return s.driver.ListChatMessages(ctx, find)
}

func (s *Store) DeleteChatMessage(ctx context.Context, delete *DeleteChatMessage) error {
	return s.driver.DeleteChatMessage(ctx, delete)
}

func (s *Store) CreateMoodCheckin(ctx context.Context, create *MoodCheckin) (*MoodCheckin, error) {
	return s.driver.CreateMoodCheckin(ctx, create)
}

func (s *Store) ListMoodCheckins(ctx context.Context, find *FindMoodCheckin) ([]*MoodCheckin, error) {
	return s.driver.ListMoodCheckins(ctx, find)
}

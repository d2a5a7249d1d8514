package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// User model related methods.
	CreateUser(ctx context.Context, create *User) (*User, error)
	UpdateUser(ctx context.Context, update *UpdateUser) (*User, error)
	ListUsers(ctx context.Context, find *FindUser) ([]*User, error)
	DeleteUser(ctx context.Context, delete *DeleteUser) error

	// UserSession model related methods.
	CreateUserSession(ctx context.Context, create *UserSession) (*UserSession, error)
	ListUserSessions(ctx context.Context, find *FindUserSession) ([]*UserSession, error)
	DeleteUserSession(ctx context.Context, delete *DeleteUserSession) error

	// Balance model related methods.
	GetBalance(ctx context.Context, find *FindBalance) (*Balance, error)
	// InitializeBalance inserts the initial grant iff no row exists for
	// the user. Returns whether a row was created.
	InitializeBalance(ctx context.Context, balance *Balance) (bool, error)
	// SpendMessageCredit conditionally decrements the message count.
	// Returns the updated balance, or nil when no credit remained.
	SpendMessageCredit(ctx context.Context, userID int32, updatedTs int64) (*Balance, error)
	// SpendMoodCheckinCredit conditionally decrements the mood-checkin
	// count. Returns the updated balance, or nil when no credit remained.
	SpendMoodCheckinCredit(ctx context.Context, userID int32, updatedTs int64) (*Balance, error)
	CreditBalance(ctx context.Context, credit *CreditBalance) (*Balance, error)

	// ChatSession model related methods.
	CreateChatSession(ctx context.Context, create *ChatSession) (*ChatSession, error)
	ListChatSessions(ctx context.Context, find *FindChatSession) ([]*ChatSession, error)
	UpdateChatSession(ctx context.Context, update *UpdateChatSession) (*ChatSession, error)
	DeleteChatSession(ctx context.Context, delete *DeleteChatSession) error

	// ChatMessage model related methods.
	CreateChatMessage(ctx context.Context, create *ChatMessage) (*ChatMessage, error)
	ListChatMessages(ctx context.Context, find *FindChatMessage) ([]*ChatMessage, error)
	DeleteChatMessage(ctx context.Context, delete *DeleteChatMessage) error

	// MoodCheckin model related methods.
	CreateMoodCheckin(ctx context.Context, create *MoodCheckin) (*MoodCheckin, error)
	ListMoodCheckins(ctx context.Context, find *FindMoodCheckin) ([]*MoodCheckin, error)
}

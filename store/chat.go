package store

type ChatMessageRole string

const (
	ChatMessageRoleUser      ChatMessageRole = "USER"
	ChatMessageRoleAssistant ChatMessageRole = "ASSISTANT"
)

// ChatSession is one conversation with a single avatar. Messages within a
// session are append-only; starting over creates a new session instead of
// mutating the old one.
type ChatSession struct {
	ID        int32
	UID       string
	UserID    int32
	AvatarID  string
	CreatedTs int64
	UpdatedTs int64
}

type FindChatSession struct {
	ID     *int32
	UID    *string
	UserID *int32
}

type UpdateChatSession struct {
	ID        int32
	UpdatedTs *int64
}

type DeleteChatSession struct {
	ID int32
}

// ChatMessage is immutable once appended and never deleted within a
// session's lifetime.
type ChatMessage struct {
	ID        int32
	UID       string
	SessionID int32
	Role      ChatMessageRole
	Content   string
	AvatarID  string
	CreatedTs int64
}

type FindChatMessage struct {
	ID        *int32
	UID       *string
	SessionID *int32
}

type DeleteChatMessage struct {
	SessionID *int32
}

package store

// UserSession is a server-side login session backing an access token.
// Sign-out revokes the row, so a stolen token dies with the session.
type UserSession struct {
	ID        string
	UserID    int32
	CreatedTs int64
	ExpiresTs int64
}

type FindUserSession struct {
	ID     *string
	UserID *int32
}

type DeleteUserSession struct {
	ID     *string
	UserID *int32
}

package store

// User is a signed-in account, created the first time a Google identity
// completes the OAuth callback.
type User struct {
	ID          int32
	UID         string
	GoogleSub   string
	Email       string
	DisplayName string
	AvatarURL   string
	CreatedTs   int64
	UpdatedTs   int64
}

type FindUser struct {
	ID        *int32
	UID       *string
	GoogleSub *string
	Email     *string
}

type UpdateUser struct {
	ID          int32
	Email       *string
	DisplayName *string
	AvatarURL   *string
	UpdatedTs   *int64
}

type DeleteUser struct {
	ID int32
}

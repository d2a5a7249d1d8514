package store

// Initial grant credited exactly once, when a user signs in for the
// first time.
const (
	InitialMessageGrant     int32 = 20
	InitialMoodCheckinGrant int32 = 10
)

// Balance tracks the spendable credits of one user. Counts never go
// negative: spends are conditional at the SQL level.
type Balance struct {
	UserID       int32
	Messages     int32
	MoodCheckins int32
	UpdatedTs    int64
}

type FindBalance struct {
	UserID int32
}

// CreditBalance adds purchased grants to an existing balance row.
type CreditBalance struct {
	UserID       int32
	Messages     int32
	MoodCheckins int32
	UpdatedTs    int64
}

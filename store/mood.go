package store

// MoodCheckin is one recorded mood entry. Creating one consumes a
// mood-checkin credit from the user's balance.
type MoodCheckin struct {
	ID        int32
	UID       string
	UserID    int32
	Mood      string
	Note      string
	CreatedTs int64
}

type FindMoodCheckin struct {
	ID     *int32
	UserID *int32
	Limit  *int
}

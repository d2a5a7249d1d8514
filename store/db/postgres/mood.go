package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/mindgleam/mindgleam/store"
)

func (d *DB) CreateMoodCheckin(ctx context.Context, create *store.MoodCheckin) (*store.MoodCheckin, error) {
	fields := []string{"uid", "user_id", "mood", "note", "created_ts"}
	args := []any{create.UID, create.UserID, create.Mood, create.Note, create.CreatedTs}

	stmt := `INSERT INTO mood_checkin (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create mood checkin: %w", err)
	}

	return create, nil
}

func (d *DB) ListMoodCheckins(ctx context.Context, find *store.FindMoodCheckin) ([]*store.MoodCheckin, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}

	query := `SELECT id, uid, user_id, mood, note, created_ts FROM mood_checkin
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list mood checkins: %w", err)
	}
	defer rows.Close()

	list := make([]*store.MoodCheckin, 0)
	for rows.Next() {
		checkin := &store.MoodCheckin{}
		if err := rows.Scan(&checkin.ID, &checkin.UID, &checkin.UserID, &checkin.Mood, &checkin.Note, &checkin.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan mood checkin: %w", err)
		}
		list = append(list, checkin)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mood checkins: %w", err)
	}

	return list, nil
}

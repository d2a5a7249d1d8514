package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/mindgleam/mindgleam/store"
)

func (d *DB) CreateUserSession(ctx context.Context, create *store.UserSession) (*store.UserSession, error) {
	fields := []string{"id", "user_id", "created_ts", "expires_ts"}
	args := []any{create.ID, create.UserID, create.CreatedTs, create.ExpiresTs}

	stmt := `INSERT INTO user_session (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to create user session: %w", err)
	}

	return create, nil
}

func (d *DB) ListUserSessions(ctx context.Context, find *store.FindUserSession) ([]*store.UserSession, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}

	query := `SELECT id, user_id, created_ts, expires_ts FROM user_session
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list user sessions: %w", err)
	}
	defer rows.Close()

	list := make([]*store.UserSession, 0)
	for rows.Next() {
		session := &store.UserSession{}
		if err := rows.Scan(&session.ID, &session.UserID, &session.CreatedTs, &session.ExpiresTs); err != nil {
			return nil, fmt.Errorf("failed to scan user session: %w", err)
		}
		list = append(list, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user sessions: %w", err)
	}

	return list, nil
}

func (d *DB) DeleteUserSession(ctx context.Context, delete *store.DeleteUserSession) error {
	where, args := []string{}, []any{}

	if delete.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *delete.ID)
	}
	if delete.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *delete.UserID)
	}

	if len(where) == 0 {
		return fmt.Errorf("no condition to delete")
	}

	stmt := `DELETE FROM user_session WHERE ` + strings.Join(where, " AND ")
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to delete user session: %w", err)
	}

	return nil
}

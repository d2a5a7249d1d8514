package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mindgleam/mindgleam/store"
)

func (d *DB) GetBalance(ctx context.Context, find *store.FindBalance) (*store.Balance, error) {
	balance := &store.Balance{}
	err := d.db.QueryRowContext(ctx, `
		SELECT user_id, messages_remaining, mood_checkins_remaining, updated_ts
		FROM user_balance
		WHERE user_id = `+placeholder(1), find.UserID,
	).Scan(&balance.UserID, &balance.Messages, &balance.MoodCheckins, &balance.UpdatedTs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func (d *DB) InitializeBalance(ctx context.Context, balance *store.Balance) (bool, error) {
	// ON CONFLICT DO NOTHING keeps the grant idempotent across duplicate
	// sign-in events.
	result, err := d.db.ExecContext(ctx, `
		INSERT INTO user_balance (user_id, messages_remaining, mood_checkins_remaining, updated_ts)
		VALUES (`+placeholders(4)+`)
		ON CONFLICT (user_id) DO NOTHING`,
		balance.UserID, balance.Messages, balance.MoodCheckins, balance.UpdatedTs,
	)
	if err != nil {
		return false, fmt.Errorf("failed to initialize balance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows > 0, nil
}

func (d *DB) SpendMessageCredit(ctx context.Context, userID int32, updatedTs int64) (*store.Balance, error) {
	return d.spendCredit(ctx, "messages_remaining", userID, updatedTs)
}

func (d *DB) SpendMoodCheckinCredit(ctx context.Context, userID int32, updatedTs int64) (*store.Balance, error) {
	return d.spendCredit(ctx, "mood_checkins_remaining", userID, updatedTs)
}

// spendCredit decrements column iff it is positive, so the count can
// never go negative even under concurrent spends.
func (d *DB) spendCredit(ctx context.Context, column string, userID int32, updatedTs int64) (*store.Balance, error) {
	balance := &store.Balance{}
	err := d.db.QueryRowContext(ctx, `
		UPDATE user_balance
		SET `+column+` = `+column+` - 1, updated_ts = `+placeholder(1)+`
		WHERE user_id = `+placeholder(2)+` AND `+column+` > 0
		RETURNING user_id, messages_remaining, mood_checkins_remaining, updated_ts`,
		updatedTs, userID,
	).Scan(&balance.UserID, &balance.Messages, &balance.MoodCheckins, &balance.UpdatedTs)
	if err == sql.ErrNoRows {
		// No row or no credit left.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to spend credit: %w", err)
	}
	return balance, nil
}

func (d *DB) CreditBalance(ctx context.Context, credit *store.CreditBalance) (*store.Balance, error) {
	balance := &store.Balance{}
	err := d.db.QueryRowContext(ctx, `
		INSERT INTO user_balance (user_id, messages_remaining, mood_checkins_remaining, updated_ts)
		VALUES (`+placeholders(4)+`)
		ON CONFLICT (user_id) DO UPDATE SET
			messages_remaining = user_balance.messages_remaining + excluded.messages_remaining,
			mood_checkins_remaining = user_balance.mood_checkins_remaining + excluded.mood_checkins_remaining,
			updated_ts = excluded.updated_ts
		RETURNING user_id, messages_remaining, mood_checkins_remaining, updated_ts`,
		credit.UserID, credit.Messages, credit.MoodCheckins, credit.UpdatedTs,
	).Scan(&balance.UserID, &balance.Messages, &balance.MoodCheckins, &balance.UpdatedTs)
	if err != nil {
		return nil, fmt.Errorf("failed to credit balance: %w", err)
	}
	return balance, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// AccountStore tracks the principals that own conversations.
type AccountStore struct {
	db    *sql.DB
	clock Clock
}

// NewAccountStore creates an account store.
func NewAccountStore(db *sql.DB, clock Clock) *AccountStore {
	if clock == nil {
		clock = systemClock
	}
	return &AccountStore{db: db, clock: clock}
}

// Exists reports whether the account is known.
func (s *AccountStore) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE id = ?`, id,
	).Scan(&n); err != nil {
		return false, fmt.Errorf("lookup account: %w", err)
	}
	return n > 0, nil
}

// Ensure inserts the account when it is absent. When init is non-nil it runs
// in the same transaction as the insert, so a failing init leaves no account
// behind. It reports whether this call created it.
func (s *AccountStore) Ensure(ctx context.Context, id string, init func(ctx context.Context, tx *sql.Tx) error) (bool, error) {
	exists, err := s.Exists(ctx, id)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if err := s.create(ctx, id, init); err != nil {
		// A concurrent provision may have won the insert.
		if exists, lookupErr := s.Exists(ctx, id); lookupErr == nil && exists {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *AccountStore) create(ctx context.Context, id string, init func(ctx context.Context, tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin account tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (id, created_at) VALUES (?, ?)`,
		id, s.clock.now(),
	); err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	if init != nil {
		if err := init(ctx, tx); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit account: %w", err)
	}
	return nil
}

// Delete removes the account. Its conversations and messages go with it.
func (s *AccountStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

package core

import (
	"context"
	"errors"
	"fmt"

	db "github.com/JonMunkholm/labreport/internal/database"
	"github.com/jackc/pgx/v5"
)

// StateStore persists the session blob under a fixed key. Load returns
// ErrStateNotFound when nothing was saved. Writes overwrite; the last
// writer wins.
type StateStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
}

// PostgresStateStore keeps the blob in the app_state table.
type PostgresStateStore struct {
	q *db.Queries
}

// NewPostgresStateStore wraps a pool, connection or transaction.
func NewPostgresStateStore(conn db.DBTX) *PostgresStateStore {
	return &PostgresStateStore{q: db.New(conn)}
}

func (s *PostgresStateStore) Load(ctx context.Context, key string) ([]byte, error) {
	row, err := s.q.GetState(ctx, key)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load state %q: %w", key, err)
	}
	return row.Payload, nil
}

func (s *PostgresStateStore) Save(ctx context.Context, key string, payload []byte) error {
	if err := s.q.UpsertState(ctx, db.UpsertStateParams{Key: key, Payload: payload}); err != nil {
		return fmt.Errorf("save state %q: %w", key, err)
	}
	return nil
}

func (s *PostgresStateStore) Delete(ctx context.Context, key string) error {
	n, err := s.q.DeleteState(ctx, key)
	if err != nil {
		return fmt.Errorf("delete state %q: %w", key, err)
	}
	if n == 0 {
		return ErrStateNotFound
	}
	return nil
}

// source: state.sql

package database

import (
	"context"
)

const getState = `-- name: GetState :one
SELECT key, payload, updated_at FROM app_state
WHERE key = $1
`

func (q *Queries) GetState(ctx context.Context, key string) (AppState, error) {
	row := q.db.QueryRow(ctx, getState, key)
	var i AppState
	err := row.Scan(&i.Key, &i.Payload, &i.UpdatedAt)
	return i, err
}

const upsertState = `-- name: UpsertState :exec
INSERT INTO app_state (key, payload, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE
SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
`

type UpsertStateParams struct {
	Key     string
	Payload []byte
}

func (q *Queries) UpsertState(ctx context.Context, arg UpsertStateParams) error {
	_, err := q.db.Exec(ctx, upsertState, arg.Key, arg.Payload)
	return err
}

const deleteState = `-- name: DeleteState :execrows
DELETE FROM app_state WHERE key = $1
`

func (q *Queries) DeleteState(ctx context.Context, key string) (int64, error) {
	result, err := q.db.Exec(ctx, deleteState, key)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

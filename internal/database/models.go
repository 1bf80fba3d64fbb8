package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type AppState struct {
	Key       string
	Payload   []byte
	UpdatedAt pgtype.Timestamptz
}

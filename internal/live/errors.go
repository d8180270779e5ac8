package live

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrIndexMissing marks a subscription failure that no amount of retrying
// will fix: the store is missing a table, column or index the live query
// needs. It has to be remediated by an operator.
var ErrIndexMissing = errors.New("missing database index")

// postgres error classes that mean the schema, not the network, is broken
const (
	pgUndefinedColumn = "42703"
	pgUndefinedObject = "42704"
	pgUndefinedTable  = "42P01"
)

func IsIndexMissing(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrIndexMissing) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUndefinedColumn, pgUndefinedObject, pgUndefinedTable:
			return true
		}
	}
	return false
}

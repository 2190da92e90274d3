package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when no record matches a lookup.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key (email, token value) is taken.
	ErrDuplicate = errors.New("record already exists")
)

// mapPgError folds driver errors into the repository sentinels.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrDuplicate
		case "23503":
			// referenced patient, clinician or program is gone
			return ErrNotFound
		case "22P02":
			// malformed uuid in a lookup is indistinguishable from a miss
			return ErrNotFound
		}
	}
	return err
}

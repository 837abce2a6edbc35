package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEntry = errors.New("record already exists")
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique-constraint violation
// surfaced by the postgres driver or translated by GORM.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, ErrDuplicateEntry) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// translate maps driver/GORM errors onto the repository sentinels so services
// never import gorm or pgconn for error checks.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if IsUniqueViolation(err) {
		return ErrDuplicateEntry
	}
	return err
}

// Package sqlstore implements the repositories over sqlx. The same queries run
// on SQLite and on PostgreSQL through the pgx stdlib driver; placeholders are
// rebound per driver.
package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/eslsoft/wordladder/internal/entity"
)

const pgUniqueViolation = "23505"

// translateError maps driver errors onto domain sentinels. notFound is
// returned for sql.ErrNoRows.
func translateError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) && notFound != nil {
		return notFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", entity.ErrDuplicate, pgErr.ConstraintName)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) &&
		(liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return fmt.Errorf("%w: %s", entity.ErrDuplicate, liteErr.Error())
	}
	return err
}

package mysql

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"travel_admin/internal/domain"
)

const (
	errDupEntry        = 1062
	errNoReferencedRow = 1452
)

// classify maps driver failures onto the domain error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errDupEntry:
			return fmt.Errorf("%w: %s", domain.ErrConflict, me.Message)
		case errNoReferencedRow:
			return fmt.Errorf("%w: %s", domain.ErrNotFound, me.Message)
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrInternal, err)
}

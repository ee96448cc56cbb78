package mysql

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	driver "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"
)

// MigrationDSN enables multiStatements on dsn; migration files hold more
// than one statement and golang-migrate runs each file in a single Exec.
func MigrationDSN(dsn string) (string, error) {
	cfg, err := driver.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MultiStatements = true
	return cfg.FormatDSN(), nil
}

// Migrate applies the pending NNNN_name.up.sql files in dir to a MySQL
// database opened with MigrationDSN and returns the resulting schema version.
// It takes ownership of db and closes it.
func Migrate(db *sql.DB, dir string) (uint, error) {
	d, err := migratemysql.WithInstance(db, &migratemysql.Config{})
	if err != nil {
		_ = db.Close()
		return 0, fmt.Errorf("migrate driver: %w", err)
	}
	return MigrateWith(d, "mysql", dir)
}

// MigrateWith runs dir against an opened golang-migrate driver and closes it.
func MigrateWith(d database.Driver, name, dir string) (uint, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		_ = d.Close()
		return 0, err
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+filepath.ToSlash(abs), name, d)
	if err != nil {
		_ = d.Close()
		return 0, fmt.Errorf("migrations %s: %w", dir, err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("migrate close failed")
		}
	}()
	m.Log = migrateLog{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, err
	}
	v, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, err
	case dirty:
		return v, fmt.Errorf("schema version %d is dirty", v)
	}
	return v, nil
}

type migrateLog struct{}

func (migrateLog) Printf(format string, v ...any) {
	log.Info().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (migrateLog) Verbose() bool { return false }

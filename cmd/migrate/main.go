package main

import (
	"context"
	"database/sql"
	"flag"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"travel_admin/internal/adapters/observability"
	"travel_admin/internal/shared"
	mysqlrepo "travel_admin/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv)

	dir := flag.String("dir", cfg.MigrationsDir, "directory holding NNNN_name.up.sql / .down.sql migrations")
	timeout := flag.Duration("timeout", 30*time.Second, "deadline for reaching the database")
	flag.Parse()

	dsn, err := mysqlrepo.MigrationDSN(cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid MYSQL_DSN")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	err = db.PingContext(ctx)
	cancel()
	if err != nil {
		_ = db.Close()
		log.Fatal().Err(err).Msg("db.Ping failed")
	}

	v, err := mysqlrepo.Migrate(db, *dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", *dir).Msg("migration failed")
	}
	log.Info().Str("dir", *dir).Uint("version", v).Msg("migrations done")
}

//go:build integration

package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"

	"travel_admin/internal/domain"
	mysqlrepo "travel_admin/internal/storage/mysql"
)

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=$PWD/migrations)", k)
	}
	return v
}

// applyMigrations runs on its own handle; Migrate closes it when done.
func applyMigrations(t *testing.T, dsn string) {
	t.Helper()
	mdsn, err := mysqlrepo.MigrationDSN(dsn)
	require.NoError(t, err)
	db, err := sql.Open("mysql", mdsn)
	require.NoError(t, err)
	v, err := mysqlrepo.Migrate(db, mustEnv(t, "MIGRATIONS_DIR"))
	require.NoError(t, err)
	require.Positive(t, v)
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=travel",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/travel?parseTime=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, dsn)
	return db
}

func TestStore_MySQL_SoftDeleteAndTranslations(t *testing.T) {
	db := startMySQL(t)
	ctx := context.Background()

	currencies := mysqlrepo.NewStore(db, mysqlrepo.Currencies)
	names := mysqlrepo.NewStore(db, mysqlrepo.CurrencyTranslations)

	eur, err := currencies.Create(ctx, domain.Fields{"code": "EUR", "status": true})
	require.NoError(t, err)

	_, err = names.Create(ctx, domain.Fields{"currency_id": eur.ID(), "language_code": "en", "name": "Euro"})
	require.NoError(t, err)

	_, err = names.Create(ctx, domain.Fields{"currency_id": 424242, "language_code": "en", "name": "Ghost"})
	require.ErrorIs(t, err, domain.ErrNotFound, "FK violation maps to not found")

	up, err := currencies.Update(ctx, eur.ID(), domain.Fields{"status": false})
	require.NoError(t, err)
	require.EqualValues(t, 0, up["status"])
	require.Equal(t, "EUR", up["code"])

	require.NoError(t, currencies.Delete(ctx, eur.ID()))
	require.NoError(t, currencies.Delete(ctx, eur.ID()))
	_, err = currencies.First(ctx, domain.Filter{"id": eur.ID()})
	require.ErrorIs(t, err, domain.ErrNotFound)

	audit := mysqlrepo.NewAuditRepo(db)
	require.NoError(t, audit.Insert(ctx, domain.AuditEntry{
		ActorID: 1, ActorKind: domain.ActorAdmin, Process: domain.ProcessCreate,
		TableName: "currencies", TargetID: eur.ID(),
	}))
	page, err := audit.List(ctx, domain.AuditQuery{TableName: "currencies"})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
}

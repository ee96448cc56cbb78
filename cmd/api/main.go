package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "travel_admin/internal/adapters/http_server"
	"travel_admin/internal/adapters/observability"
	redisad "travel_admin/internal/adapters/redis"
	"travel_admin/internal/app"
	"travel_admin/internal/domain"
	"travel_admin/internal/shared"
	mysqlrepo "travel_admin/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// cache is optional; permission reads go to MySQL without it
	var cache domain.Cache
	rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := rc.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, permission cache disabled")
	} else {
		cache = rc
	}

	// deps
	audit := app.NewAuditRecorder(mysqlrepo.NewAuditRepo(db), app.AuditConfig{
		Workers:         cfg.AuditWorkers,
		WritesPerSecond: cfg.AuditWritesPerSec,
		WriteTimeout:    cfg.AuditWriteTimeout,
		Observe:         observability.ObserveAudit,
	})
	perms := mysqlrepo.NewStore(db, mysqlrepo.Permissions)
	permSvc := app.NewPermissionService(app.PermissionStores{
		Permissions:      perms,
		RolePermissions:  mysqlrepo.NewStore(db, mysqlrepo.RolePermissions),
		Users:            mysqlrepo.NewStore(db, mysqlrepo.Users),
		DealerUsers:      mysqlrepo.NewStore(db, mysqlrepo.DealerUsers),
		Admins:           mysqlrepo.NewStore(db, mysqlrepo.Admins),
		SolutionPartners: mysqlrepo.NewStore(db, mysqlrepo.SolutionPartners),
		SalesPartners:    mysqlrepo.NewStore(db, mysqlrepo.SalesPartners),
	}, cache, cfg.PermissionCacheTTL)

	// http
	srv := server.New(15 * time.Second)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Resources:      app.NewResourceService(app.NewTranslationService(cfg.DefaultLanguage)),
		Audit:          audit,
		Permissions:    permSvc,
		PermissionRows: perms,
		Registry:       resources(db),
	}, server.Options{
		JWTSecret:       []byte(cfg.JWTSecret),
		DefaultLanguage: cfg.DefaultLanguage,
		Languages:       cfg.Languages,
	})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := audit.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("audit writes not drained")
	}
	if err := rc.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close")
	}
	if err := db.Close(); err != nil {
		log.Warn().Err(err).Msg("db close")
	}
}

// resources lists the entity kinds served under /v1.
func resources(db *sql.DB) []app.Resource {
	translated := func(name string, parent, pivot mysqlrepo.Table, fk string, localized ...string) app.Resource {
		p := mysqlrepo.NewStore(db, parent)
		return app.Resource{
			Name:      name,
			Store:     p,
			Pivot:     &app.Pivot{Parent: p, Rows: mysqlrepo.NewStore(db, pivot), ForeignKey: fk},
			Localized: localized,
		}
	}
	return []app.Resource{
		translated("currencies", mysqlrepo.Currencies, mysqlrepo.CurrencyTranslations, "currency_id", "name"),
		translated("blogs", mysqlrepo.Blogs, mysqlrepo.BlogTranslations, "blog_id", "title", "content"),
		translated("campaigns", mysqlrepo.Campaigns, mysqlrepo.CampaignTranslations, "campaign_id", "title", "description"),
	}
}

package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	JWTSecret   string

	DefaultLanguage string
	Languages       []string

	AuditWorkers      int
	AuditWritesPerSec float64
	AuditWriteTimeout time.Duration

	PermissionCacheTTL time.Duration
	MigrationsDir      string
}

// Load reads an optional .env (real environment wins) and then the process
// environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg(".env not loaded")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not a number, using default")
		}
		return def
	}

	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/travel?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisDB:     atoi("REDIS_DB", 0),
		RedisPass:   env("REDIS_PASSWORD", ""),
		JWTSecret:   env("JWT_SECRET", ""),

		DefaultLanguage: strings.ToLower(env("DEFAULT_LANGUAGE", "en")),
		Languages:       splitList(env("SUPPORTED_LANGUAGES", "en,tr,ar,fr,de")),

		AuditWorkers:      atoi("AUDIT_WORKERS", 4),
		AuditWritesPerSec: atof("AUDIT_WRITES_PER_SECOND", 0),
		AuditWriteTimeout: time.Duration(atoi("AUDIT_WRITE_TIMEOUT_MS", 5000)) * time.Millisecond,

		PermissionCacheTTL: time.Duration(atoi("PERMISSION_CACHE_TTL_SECONDS", 300)) * time.Second,
		MigrationsDir:      env("MIGRATIONS_DIR", "migrations"),
	}
	if c.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty")
	}
	if !c.supports(c.DefaultLanguage) {
		c.Languages = append(c.Languages, c.DefaultLanguage)
	}
	return c
}

func (c Config) supports(lang string) bool {
	for _, l := range c.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

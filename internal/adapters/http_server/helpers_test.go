package httpserver_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	_ "modernc.org/sqlite"

	httpserver "travel_admin/internal/adapters/http_server"
	"travel_admin/internal/app"
	"travel_admin/internal/storage/mysql"
)

const schema = `
CREATE TABLE currencies (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  code TEXT NOT NULL, symbol TEXT NULL, exchange_rate REAL NULL, status INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME NOT NULL, updated_at DATETIME NOT NULL, deleted_at DATETIME NULL
);
CREATE TABLE currency_translations (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  currency_id INTEGER NOT NULL REFERENCES currencies(id), language_code TEXT NOT NULL, name TEXT NULL,
  created_at DATETIME NOT NULL, updated_at DATETIME NOT NULL, deleted_at DATETIME NULL
);
CREATE TABLE users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL, email TEXT NOT NULL, status INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME NOT NULL, updated_at DATETIME NOT NULL, deleted_at DATETIME NULL
);
CREATE TABLE admins (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  role_id INTEGER NULL, name TEXT NOT NULL, email TEXT NOT NULL, status INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME NOT NULL, updated_at DATETIME NOT NULL, deleted_at DATETIME NULL
);
CREATE TABLE permissions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  target_type TEXT NOT NULL, target_id INTEGER NOT NULL, name TEXT NOT NULL, granted INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME NOT NULL, updated_at DATETIME NOT NULL, deleted_at DATETIME NULL
);
CREATE TABLE role_permissions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  role_id INTEGER NOT NULL, name TEXT NOT NULL, granted INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME NOT NULL, updated_at DATETIME NOT NULL, deleted_at DATETIME NULL
);
CREATE TABLE audit_logs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  actor_id INTEGER NOT NULL DEFAULT 0, actor_type TEXT NOT NULL, process TEXT NOT NULL,
  table_name TEXT NOT NULL, target_id INTEGER NOT NULL DEFAULT 0, content TEXT NULL,
  created_at DATETIME NOT NULL
);
`

var secret = []byte("test-secret")

type testAPI struct {
	srv   *httptest.Server
	rec   *app.AuditRecorder
	users *mysql.Store
	adms  *mysql.Store
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return db
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db := openDB(t)
	currencies := mysql.NewStore(db, mysql.Currencies)
	names := mysql.NewStore(db, mysql.CurrencyTranslations)
	perms := mysql.NewStore(db, mysql.Permissions)
	api := &testAPI{
		users: mysql.NewStore(db, mysql.Users),
		adms:  mysql.NewStore(db, mysql.Admins),
		rec:   app.NewAuditRecorder(mysql.NewAuditRepo(db), app.AuditConfig{}),
	}

	h := &httpserver.Handlers{
		Resources: app.NewResourceService(app.NewTranslationService("en")),
		Audit:     api.rec,
		Permissions: app.NewPermissionService(app.PermissionStores{
			Permissions:     perms,
			RolePermissions: mysql.NewStore(db, mysql.RolePermissions),
			Users:           api.users,
			Admins:          api.adms,
		}, nil, 0),
		PermissionRows: perms,
		Registry: []app.Resource{{
			Name:      "currencies",
			Store:     currencies,
			Pivot:     &app.Pivot{Parent: currencies, Rows: names, ForeignKey: "currency_id"},
			Localized: []string{"name"},
		}},
	}
	s := httpserver.New(5 * time.Second)
	s.MountHandlers(h, httpserver.Options{JWTSecret: secret, DefaultLanguage: "en", Languages: []string{"en", "fr", "ar"}})
	api.srv = httptest.NewServer(s.Mux())
	t.Cleanup(api.srv.Close)
	return api
}

func token(t *testing.T, id int64, kind string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"actor_id": id, "actor_type": kind}).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

type envelope struct {
	Success     bool              `json:"success"`
	Message     string            `json:"message"`
	Data        json.RawMessage   `json:"data"`
	Errors      map[string]string `json:"errors"`
	Total       int64             `json:"total"`
	TotalPages  int64             `json:"totalPages"`
	CurrentPage int               `json:"currentPage"`
	Limit       int               `json:"limit"`
}

type call struct {
	method, path, body, bearer string
	header                     map[string]string
}

func (a *testAPI) do(t *testing.T, c call) (*http.Response, envelope) {
	t.Helper()
	var body io.Reader
	if c.body != "" {
		body = bytes.NewBufferString(c.body)
	}
	req, err := http.NewRequest(c.method, a.srv.URL+c.path, body)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if c.body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", c.method, c.path, err)
	}
	defer res.Body.Close()
	var env envelope
	raw, _ := io.ReadAll(res.Body)
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}
	return res, env
}

// rawKeys returns the top-level members of a GET response body.
func (a *testAPI) rawKeys(t *testing.T, path string) map[string]json.RawMessage {
	t.Helper()
	res, err := http.Get(a.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer res.Body.Close()
	var keys map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&keys); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return keys
}

func (a *testAPI) auditLog(t *testing.T, query string) ([]map[string]any, envelope) {
	t.Helper()
	a.rec.Flush()
	res, env := a.do(t, call{method: http.MethodGet, path: "/v1/audit-logs" + query})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("audit-logs status %d: %s", res.StatusCode, env.Message)
	}
	var items []map[string]any
	if err := json.Unmarshal(env.Data, &items); err != nil {
		t.Fatalf("decode audit items: %v", err)
	}
	return items, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}

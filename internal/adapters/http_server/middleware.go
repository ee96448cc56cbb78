package httpserver

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"travel_admin/internal/adapters/observability"
	"travel_admin/internal/ctxutil"
	"travel_admin/internal/domain"
)

func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return http.TimeoutHandler(next, d, "timeout") }
}

// ---- status-recording ResponseWriter ----

type srw struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *srw) WriteHeader(code int) {
	if !w.wrote {
		w.status = code
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *srw) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *srw) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *srw) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// ---- Metrics middleware ----

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &srw{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		observability.ObserveHTTP(routeOf(r), r.Method, sw.Status(), time.Since(start))
	})
}

// ---- Structured logging middleware ----

func Logger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &srw{ResponseWriter: w}
			next.ServeHTTP(sw, r)
			l.Info().
				Str("route", routeOf(r)).
				Str("method", r.Method).
				Int("status", sw.Status()).
				Dur("duration", time.Since(start)).
				Str("remote", remoteIP(r)).
				Str("ua", r.UserAgent()).
				Msg("http_request")
		})
	}
}

// Picks first X-Forwarded-For IP, else X-Real-IP, else RemoteAddr host.
func remoteIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// ---- Identity ----

type actorClaims struct {
	ActorID   int64  `json:"actor_id"`
	ActorType string `json:"actor_type"`
	jwt.RegisteredClaims
}

var errBadToken = errors.New("invalid bearer token")

// Identity puts the actor from an HS256 bearer token on the request context.
// Requests without an Authorization header pass through anonymous.
func Identity(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if h == "" {
				next.ServeHTTP(w, r)
				return
			}
			a, err := parseActor(h, secret)
			if err != nil {
				writeFail(w, http.StatusUnauthorized, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(ctxutil.WithActor(r.Context(), a)))
		})
	}
}

func parseActor(header string, secret []byte) (domain.Actor, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return domain.Actor{}, errBadToken
	}
	var c actorClaims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &c, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Actor{}, errBadToken
	}
	return domain.Actor{ID: c.ActorID, Kind: domain.NormalizeActorKind(domain.ActorKind(c.ActorType))}, nil
}

// ---- Language ----

// Language negotiates the request language: ?lang=, then the first supported
// Accept-Language tag, then def.
func Language(def string, supported []string) func(http.Handler) http.Handler {
	ok := make(map[string]struct{}, len(supported))
	for _, l := range supported {
		ok[strings.ToLower(strings.TrimSpace(l))] = struct{}{}
	}
	pick := func(tag string) string {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if i := strings.IndexAny(tag, ";-_"); i >= 0 {
			tag = tag[:i]
		}
		if _, found := ok[tag]; found {
			return tag
		}
		return ""
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := pick(r.URL.Query().Get("lang"))
			if lang == "" {
				for _, tag := range strings.Split(r.Header.Get("Accept-Language"), ",") {
					if lang = pick(tag); lang != "" {
						break
					}
				}
			}
			if lang == "" {
				lang = def
			}
			w.Header().Set("Content-Language", lang)
			next.ServeHTTP(w, r.WithContext(ctxutil.WithLanguage(r.Context(), lang)))
		})
	}
}

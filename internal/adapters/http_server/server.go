package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type Server struct{ mux *chi.Mux }

// Options configure the /v1 collaborators.
type Options struct {
	JWTSecret       []byte
	DefaultLanguage string
	Languages       []string
}

func New(timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	m := chi.NewRouter()

	// middlewares must be registered before any route
	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(AuditOutcome)
	m.Use(Timeout(timeout))
	m.Use(Metrics)
	m.Use(Logger(log.Logger))

	return &Server{mux: m}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches any extra handler (e.g., /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}

func (s *Server) MountHandlers(h *Handlers, opts Options) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1", func(v chi.Router) {
		v.Use(Identity(opts.JWTSecret))
		v.Use(Language(opts.DefaultLanguage, opts.Languages))

		for _, res := range h.Registry {
			v.Route("/"+res.Name, func(rr chi.Router) {
				audit := Audit(h.Audit, res.Store, "id")
				rr.Get("/", h.list(res))
				rr.With(audit).Post("/", h.create(res))
				rr.Get("/{id}", h.get(res))
				rr.With(audit).Put("/{id}", h.update(res))
				rr.With(audit).Patch("/{id}", h.update(res))
				rr.With(audit).Delete("/{id}", h.remove(res))
				if res.Pivot != nil {
					rr.Get("/{id}/translations", h.translations(res))
					rr.With(Audit(h.Audit, res.Pivot.Rows, "")).Delete("/{id}/translations/{lang}", h.removeTranslation(res))
				}
			})
		}

		v.Get("/audit-logs", h.listAudit)
		v.Get("/permissions/{target}/{id}", h.listPermissions)
		v.With(Audit(h.Audit, h.PermissionRows, "")).Put("/permissions/{target}/{id}", h.putPermission)
	})
}

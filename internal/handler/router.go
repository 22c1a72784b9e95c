package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RouterConfig wires the handlers into a router.
type RouterConfig struct {
	Events        *EventHandler
	Auth          *AuthHandler
	Authenticator Authenticator
	Logger        *slog.Logger
	CORSOrigin    string
	// WebDir, when set, is served at the root for the browser front end.
	WebDir string
}

// NewRouter builds the HTTP handler for the whole API.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(cfg.Logger))
	r.Use(CORS(cfg.CORSOrigin))

	requireAuth := RequireAuth(cfg.Authenticator, cfg.Logger)

	r.Get("/health", HealthCheck)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", cfg.Auth.Signup)
		r.Post("/login", cfg.Auth.Login)
		r.Post("/logout", cfg.Auth.Logout)
		r.With(requireAuth).Get("/me", cfg.Auth.Me)
	})

	r.Route("/events", func(r chi.Router) {
		r.Get("/", cfg.Events.ListEvents)
		r.Get("/{id}", cfg.Events.GetEvent)
		r.Get("/{id}/calendar.ics", cfg.Events.EventCalendar)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/registered", cfg.Events.ListRegistered)
			r.Get("/registered/calendar.ics", cfg.Events.RegisteredCalendar)
			r.Post("/{id}/register", cfg.Events.Register)
			r.Post("/{id}/unregister", cfg.Events.Unregister)

			r.Group(func(r chi.Router) {
				r.Use(RequireFaculty)
				r.Post("/", cfg.Events.CreateEvent)
				r.Get("/faculty", cfg.Events.ListFacultyEvents)
				r.Put("/{id}", cfg.Events.UpdateEvent)
				r.Delete("/{id}", cfg.Events.DeleteEvent)
				r.Get("/{id}/participants", cfg.Events.ListParticipants)
			})
		})
	})

	if cfg.WebDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.WebDir)))
	}

	return otelhttp.NewHandler(r, "campus-events",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

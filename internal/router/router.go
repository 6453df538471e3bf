package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/itchan-dev/schan/internal/metrics"
	mw "github.com/itchan-dev/schan/internal/middleware"
	"github.com/itchan-dev/schan/internal/setup"
)

// New creates and configures a new chi router with all the routes.
func New(deps *setup.Dependencies) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(mw.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(mw.SecurityHeadersWithCSP(deps.Config.Server.SecureCookies, mw.DefaultCSP))
	// Enable gzip compression for html and json responses
	r.Use(chimw.Compress(5))

	h := deps.Handler
	authMw := deps.AuthMiddleware

	r.Get("/health", h.HealthHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	uploads := http.StripPrefix(setup.UploadsPrefix+"/", http.FileServer(http.Dir(deps.Files.Root())))
	r.Method(http.MethodGet, setup.UploadsPrefix+"/*", uploads)

	// special names are read by client scripts served from other origins
	r.Group(func(r chi.Router) {
		origins := deps.Config.Server.CorsOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
		r.Get("/api/special-names", h.SpecialNamesHandler)
		// preflight needs a route of its own for the group middleware to run
		r.Options("/api/special-names", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})

	// Session routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Sessions.Middleware)

		r.Get("/", h.IndexGetHandler)
		r.Get("/refresh-captcha", h.RefreshCaptchaHandler)

		r.Route("/board/{boardId}", func(r chi.Router) {
			r.Get("/", h.BoardGetHandler)
			r.Post("/thread", h.CreateThreadHandler)
			r.Get("/thread/{threadId}", h.ThreadGetHandler)
			r.Post("/thread/{threadId}/reply", h.ReplyHandler)
		})

		r.Post("/login/admin", h.LoginAdminHandler)
		r.Post("/login/mod", h.LoginModHandler)
		r.Post("/logout", h.LogoutHandler)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMw.AdminOnly())
			r.Post("/delete-post/{postId}", h.AdminDeletePostHandler)
			r.Post("/delete-board/{boardId}", h.AdminDeleteBoardHandler)
			r.Get("/update-boards", h.AdminUpdateBoardsHandler)
		})

		// Mod routes, admins pass too
		r.Route("/mod", func(r chi.Router) {
			r.Use(authMw.ModOnly())
			r.Post("/delete-post/{postId}", h.ModDeletePostHandler)
			r.Post("/ban-user/{userId}", h.ModBanUserHandler)
		})
	})

	return r
}

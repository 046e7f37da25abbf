package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/medibox-api/internal/application/alert"
	"github.com/medibox-api/internal/application/box"
	"github.com/medibox-api/internal/application/medicine"
	"github.com/medibox-api/internal/application/session"
	"github.com/medibox-api/internal/application/user"
	"github.com/medibox-api/internal/config"
	"github.com/medibox-api/internal/transport/http/handler"
	appmiddleware "github.com/medibox-api/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10. Applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	sessionSvc := session.NewService(deps.SessionRepo, deps.UserRepo, deps.JWTProvider, cfg.RefreshTokenDur)
	userSvc := user.NewService(user.ServiceDeps{
		UserRepo:        deps.UserRepo,
		SessionRepo:     deps.SessionRepo,
		JWTProvider:     deps.JWTProvider,
		RefreshTokenDur: cfg.RefreshTokenDur,
	})
	boxSvc := box.NewService(deps.BoxRepo, deps.AlertRepo, deps.DeviceClient)
	medicineSvc := medicine.NewService(deps.BoxRepo, deps.AlertRepo)
	alertSvc := alert.NewService(deps.AlertRepo, cfg.AlertRetention)

	healthH := handler.NewHealthHandler()
	sessionH := handler.NewSessionHandler(sessionSvc)
	userH := handler.NewUserHandler(userSvc)
	boxH := handler.NewBoxHandler(boxSvc)
	medicineH := handler.NewMedicineHandler(medicineSvc)
	alertH := handler.NewAlertHandler(alertSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.Get("/test", healthH.Test)
		r.Post("/test", healthH.Test)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.With(sensitiveRL.Limit).Post("/users", userH.Register)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)

			r.Get("/users/{id}", userH.Get)
			r.Put("/users/{id}", userH.Update)
			r.Delete("/users/{id}", userH.Delete)
			r.Post("/users/change-password", userH.ChangePassword)

			r.Route("/boxes", func(r chi.Router) {
				r.Post("/", boxH.Create)
				r.Get("/", boxH.List)

				r.Route("/{boxID}", func(r chi.Router) {
					r.Get("/", boxH.Get)
					r.Put("/", boxH.Update)
					r.Delete("/", boxH.Delete)

					r.Post("/connect", boxH.Connect)
					r.Post("/sync", boxH.Sync)
					r.Post("/disconnect", boxH.Disconnect)
					r.Get("/status", boxH.Status)

					r.Route("/medicines", func(r chi.Router) {
						r.Post("/", medicineH.Add)
						r.Get("/", medicineH.List)
						r.Get("/{id}", medicineH.Get)
						r.Put("/{id}", medicineH.Update)
						r.Delete("/{id}", medicineH.Delete)
					})
				})
			})

			r.Route("/alerts", func(r chi.Router) {
				r.Get("/", alertH.List)
				r.Put("/read-all", alertH.MarkAllRead)
				r.Put("/{id}/read", alertH.MarkRead)
				r.Delete("/{id}", alertH.Delete)
			})
		})
	})

	return r
}

package http

import (
	"net/http"

	"github.com/contacts-api/internal/application/auth"
	"github.com/contacts-api/internal/application/contact"
	"github.com/contacts-api/internal/application/identity"
	"github.com/contacts-api/internal/application/user"
	"github.com/contacts-api/internal/config"
	"github.com/contacts-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/contacts-api/internal/infrastructure/jwt"
	s3infra "github.com/contacts-api/internal/infrastructure/s3"
	"github.com/contacts-api/internal/infrastructure/smtp"
	"github.com/contacts-api/internal/transport/http/handler"
	appmiddleware "github.com/contacts-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo    *dynamo.UserRepo
	ContactRepo *dynamo.ContactRepo
	Identity    *identity.Cache
	S3Store     *s3infra.Store
	Mailer      smtp.Mailer
	JWTProvider *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo: deps.UserRepo,
		Identity: deps.Identity,
		Codec:    deps.JWTProvider,
		Mailer:   deps.Mailer,
		BaseURL:  cfg.BaseURL,
	})
	contactSvc := contact.NewService(deps.ContactRepo)
	userSvc := user.NewService(deps.S3Store, deps.UserRepo, deps.Identity)

	authH := handler.NewAuthHandler(authSvc)
	contactH := handler.NewContactHandler(contactSvc)
	userH := handler.NewUserHandler(userSvc)
	healthH := handler.NewHealthHandler()

	authMw := appmiddleware.Auth(authSvc)

	// 5 requests/second, burst of 10 — applied to credential-bearing public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	r.Route("/api", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Check)
		r.With(sensitiveRL.Limit).Post("/auth/signup", authH.Signup)
		r.With(sensitiveRL.Limit).Post("/auth/login", authH.Login)
		r.With(sensitiveRL.Limit).Post("/auth/request_email", authH.RequestEmail)
		r.Get("/auth/refresh_token", authH.Refresh)
		r.Get("/auth/confirmed_email/{token}", authH.Confirm)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/users/me", userH.Me)
			r.Patch("/users/avatar", userH.UpdateAvatar)

			r.Get("/contacts", contactH.List)
			r.Post("/contacts", contactH.Create)
			r.Get("/contacts/upcoming_birthdays", contactH.UpcomingBirthdays)
			r.Get("/contacts/{id}", contactH.Get)
			r.Put("/contacts/{id}", contactH.Update)
			r.Delete("/contacts/{id}", contactH.Delete)
		})
	})

	return r
}

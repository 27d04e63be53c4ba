package api

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/duohub-io/duohub/internal/account"
	"github.com/duohub-io/duohub/internal/auth"
	"github.com/duohub-io/duohub/internal/cache"
	"github.com/duohub-io/duohub/internal/config"
)

type Api struct {
	Config   config.Config
	Router   *chi.Mux
	accounts *account.Service
	tokens   *auth.TokenManager
	revoked  *cache.TokenCache
}

// NewApi builds the router around the account service.
func NewApi(cfg config.Config, accounts *account.Service, tokens *auth.TokenManager, revoked *cache.TokenCache) *Api {
	api := &Api{
		Config:   cfg,
		Router:   chi.NewRouter(),
		accounts: accounts,
		tokens:   tokens,
		revoked:  revoked,
	}
	api.setupRoutes()
	return api
}

func (api *Api) setupRoutes() {
	r := api.Router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://*.local:*", "http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Heartbeat("/heartbeat"))

	// Public routes
	r.Post("/auth/send-verification", api.SendVerificationHandler)
	r.Post("/auth/register", api.RegisterHandler)
	r.Post("/auth/login", api.LoginHandler)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(api.AuthMiddleware)
		r.Post("/auth/logout", api.LogoutHandler)
		r.Get("/users/me", api.GetProfileHandler)
		r.Put("/users/me", api.UpdateProfileHandler)
		r.Put("/users/me/password", api.ChangePasswordHandler)
		r.Delete("/users/me", api.DeleteAccountHandler)
		r.Post("/users/me/image", api.UploadProfileImageHandler)
		r.Get("/users/me/bookmarks", api.ListBookmarksHandler)
	})

	// Serve locally stored profile images
	if api.Config.Images.Backend == "local" {
		r.Handle("/static/profile/*", http.StripPrefix("/static/profile/",
			http.FileServer(http.Dir(api.Config.Images.LocalDir))))
	}
}

// Serve starts the HTTP server and blocks.
func (api *Api) Serve() {
	log.Printf("Starting API server on 0.0.0.0:%d", api.Config.APIPort)
	log.Fatal(http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", api.Config.APIPort), api.Router))
}

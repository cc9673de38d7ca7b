// Package router assembles the chi routers of the catalog and IAM services.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/emporia-labs/emporia-backend/internal/auth"
	"github.com/emporia-labs/emporia-backend/internal/handler"
	appMiddleware "github.com/emporia-labs/emporia-backend/internal/middleware"
	"github.com/emporia-labs/emporia-backend/internal/model"
)

type CatalogDeps struct {
	Categories  *handler.CategoryHandler
	Products    *handler.ProductHandler
	JWT         *auth.JWTManager
	DB          handler.Pinger
	CORSOrigins []string
}

type IAMDeps struct {
	Auth        *handler.AuthHandler
	Customers   *handler.CustomerHandler
	Employees   *handler.EmployeeHandler
	JWT         *auth.JWTManager
	DB          handler.Pinger
	CORSOrigins []string
}

// base is the middleware stack shared by every service.
func base(origins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(CORSOptions(origins)))

	return r
}

// CORSOptions is the CORS policy of the services and the gateway.
func CORSOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func NewCatalog(d CatalogDeps) http.Handler {
	r := base(d.CORSOrigins)
	requireAuth := appMiddleware.JWTAuth(d.JWT)

	r.Get("/health", handler.Health("catalog", d.DB))

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", d.Categories.List)
		r.Get("/{id}", d.Categories.Get)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.With(appMiddleware.RequirePermission(auth.CategoryCreate)).Post("/", d.Categories.Create)
			r.With(appMiddleware.RequirePermission(auth.CategoryUpdate)).Patch("/{id}/toggle-active", d.Categories.ToggleActive)
		})
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", d.Products.List)
		r.Get("/{id}", d.Products.Get)
		r.Get("/{id}/qr", d.Products.QRCode)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.With(appMiddleware.RequirePermission(auth.ProductCreate)).Post("/", d.Products.Create)
			r.With(appMiddleware.RequirePermission(auth.ProductUpdate)).Post("/{id}/images", d.Products.UploadImage)
			r.With(appMiddleware.RequirePermission(auth.ProductDelete)).Delete("/{id}", d.Products.Delete)
		})
	})

	return r
}

func NewIAM(d IAMDeps) http.Handler {
	r := base(d.CORSOrigins)
	requireAuth := appMiddleware.JWTAuth(d.JWT)
	adminOnly := appMiddleware.RequireRole(model.RoleAdmin)

	r.Get("/health", handler.Health("iam", d.DB))

	r.Route("/auth", func(r chi.Router) {
		// Public routes
		r.Get("/status", d.Auth.Status)
		r.Post("/signup", d.Auth.Signup)
		r.Post("/login", d.Auth.Login)
		r.Post("/refresh", d.Auth.Refresh)
		r.Post("/logout", d.Auth.Logout)
		r.Get("/user/{id}", d.Auth.GetUser)

		// Protected routes
		r.With(requireAuth).Get("/me", d.Auth.Me)
	})

	r.Route("/customers", func(r chi.Router) {
		r.Post("/signup", d.Customers.Signup)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/register", d.Customers.Register)
			r.Get("/profile", d.Customers.Profile)
			r.With(adminOnly).Get("/", d.Customers.List)
		})
	})

	r.Route("/employees", func(r chi.Router) {
		r.Use(requireAuth, adminOnly)
		r.Post("/register", d.Employees.Register)
		r.Get("/", d.Employees.List)
		r.Get("/{id}", d.Employees.Get)
	})

	return r
}

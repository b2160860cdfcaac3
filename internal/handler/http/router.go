package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

// HealthPath answers connectivity probes from punch terminals.
const HealthPath = "/health"

type RouterOptions struct {
	AllowedOrigins []string
	Env            string
	Version        string
	LogLevel       slog.Level
	// UploadsDir is served under /uploads when files live on local disk.
	UploadsDir string
}

func NewRouter(
	opts RouterOptions,
	JWTService jwt.Service,
	punchHandler PunchHandler,
	justificationHandler JustificationHandler,
	balanceHandler BalanceHandler,
	employeeHandler EmployeeHandler,
	eventHandler EventHandler,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(opts.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       opts.LogLevel,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "timeclock-api"),
		slog.String("version", opts.Version),
		slog.String("env", opts.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  opts.LogLevel,
		Schema: httplog.SchemaECS,
		// SSE connections stay open for minutes
		Skip: func(req *http.Request, respStatus int) bool {
			return req.URL.Path == "/api/v1/events" || req.URL.Path == HealthPath
		},
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat(HealthPath))

	if opts.UploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(opts.UploadsDir))))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Token travels in the query string
		r.Get("/events", eventHandler.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))

			r.Get("/employees/me/context", employeeHandler.GetMyCaptureContext)
			r.Get("/events/token", eventHandler.GetToken)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCompany)

				r.Route("/punches", func(r chi.Router) {
					r.With(middleware.RequirePermission(user.PermissionPunchCreate)).Post("/", punchHandler.Create)
					r.Get("/my", punchHandler.ListMine)
					r.Get("/my/last", punchHandler.GetMyLast)
					r.With(middleware.RequirePermission(user.PermissionPunchViewAll)).Get("/", punchHandler.List)
				})

				r.Route("/justifications", func(r chi.Router) {
					r.Post("/", justificationHandler.Create)
					r.Get("/my", justificationHandler.ListMine)

					// Manager only
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireManager)
						r.Get("/", justificationHandler.List)
						r.Post("/{id}/approve", justificationHandler.Approve)
						r.Post("/{id}/reject", justificationHandler.Reject)
					})
				})

				r.Route("/balances", func(r chi.Router) {
					r.Get("/my", balanceHandler.GetMyMonthly)

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionBalanceViewAll))
						r.Get("/users/{userID}", balanceHandler.GetUserMonthly)
						r.Get("/daily", balanceHandler.GetCompanyDaily)
					})
				})
			})
		})
	})
	return r
}

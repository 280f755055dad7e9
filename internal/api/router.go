package api

import (
	"log/slog"
	"net/http"
	"time"

	"loan-tracker/internal/api/handler"
	mw "loan-tracker/internal/api/middleware"
	"loan-tracker/internal/config"
	"loan-tracker/internal/domain/client"
	"loan-tracker/internal/domain/loan"
	"loan-tracker/internal/domain/user"

	_ "loan-tracker/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

func SetupRouter(
	loanService loan.LoanService,
	clientService client.ClientService,
	authService user.AuthService,
	rateLimiter *mw.RateLimiterMiddleware,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, rateLimiter, logger)
	setupMetricsEndpoint(router, cfg, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	setupSwaggerEndpoint(router, logger)

	authHandler := handler.NewAuthHandler(authService, logger)
	router.Post("/auth/login", authHandler.Login)

	router.Group(func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, authService, logger))

		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/verify", authHandler.Verify)
		r.Get("/users", authHandler.ListUsers)

		setupClientRoutes(r, clientService, logger)
		setupLoanRoutes(r, loanService, logger)
	})

	return router
}

func setupMiddleware(router *chi.Mux, rateLimiter *mw.RateLimiterMiddleware, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	if rateLimiter != nil {
		router.Use(rateLimiter.Middleware)
	}
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupSwaggerEndpoint(router *chi.Mux, logger *slog.Logger) {
	logger.Info("Setting up Swagger UI endpoint", "path", "/swagger/")
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
}

func setupLoanRoutes(r chi.Router, loanService loan.LoanService, logger *slog.Logger) {
	loanHandler := handler.NewLoanHandler(loanService, logger)
	quoteHandler := handler.NewQuoteHandler(logger)

	r.Route("/loans", func(r chi.Router) {
		r.Get("/", loanHandler.ListLoans)
		r.Post("/", loanHandler.CreateLoan)
		r.Post("/overdue-check", loanHandler.CheckOverdue)
		r.Route("/{loanID}", func(r chi.Router) {
			r.Get("/", loanHandler.GetLoan)
			r.Put("/cancel", loanHandler.CancelLoan)
			r.Get("/payments", loanHandler.ListLoanPayments)
			r.Post("/payments", loanHandler.ApplyPayment)
		})
	})
	r.Get("/payments", loanHandler.ListPayments)
	r.Get("/dashboard", loanHandler.Dashboard)
	r.Post("/amortization/quote", quoteHandler.Quote)
}

func setupClientRoutes(r chi.Router, svc client.ClientService, logger *slog.Logger) {
	h := handler.NewClientHandler(svc, logger)

	r.Route("/clients", func(r chi.Router) {
		r.Get("/", h.ListClients)
		r.Post("/", h.CreateClient)
		r.Route("/{clientID}", func(r chi.Router) {
			r.Get("/", h.GetClient)
			r.Put("/", h.UpdateClient)
			r.Delete("/", h.DeleteClient)
			r.Put("/deactivate", h.DeactivateClient)
			r.Put("/reactivate", h.ReactivateClient)
		})
	})
}

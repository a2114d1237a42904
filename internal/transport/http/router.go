package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-email-relay/internal/config"
	"github.com/go-email-relay/internal/transport/http/handler"
	appmiddleware "github.com/go-email-relay/internal/transport/http/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(appmiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.NotFound(appmiddleware.NotFound)
	r.MethodNotAllowed(appmiddleware.MethodNotAllowed)

	healthH := handler.NewHealthHandler(cfg.AppName)
	emailH := handler.NewEmailHandler(deps.Emails, deps.Verifications)

	r.Get("/", healthH.Info)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/email", func(r chi.Router) {
		r.Post("/send-verification", emailH.SendVerification)
		r.Post("/verify-code", emailH.VerifyCode)
		r.Post("/send-password-reset", emailH.SendPasswordReset)
		r.Post("/send-invoice", emailH.SendInvoice)
		r.Post("/send-simple", emailH.SendSimple)
		r.Get("/health", healthH.Health)
	})

	return r
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-email-relay/internal/application/email"
	"github.com/go-email-relay/internal/application/verification"
	"github.com/go-email-relay/internal/config"
	"github.com/go-email-relay/internal/infrastructure/dynamo"
	"github.com/go-email-relay/internal/infrastructure/emailjs"
	"github.com/go-email-relay/internal/infrastructure/memory"
	redisinfra "github.com/go-email-relay/internal/infrastructure/redis"
	s3infra "github.com/go-email-relay/internal/infrastructure/s3"
	"github.com/go-email-relay/internal/infrastructure/sendgrid"
	"github.com/go-email-relay/internal/infrastructure/smtp"
	"github.com/go-email-relay/internal/infrastructure/sns"
	"github.com/go-email-relay/internal/infrastructure/users"
	"github.com/go-email-relay/internal/metrics"
	"github.com/go-email-relay/internal/pkg/code"
	transporthttp "github.com/go-email-relay/internal/transport/http"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	logConfig(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		log.Fatalf("verification store: %v", err)
	}
	defer closeStore()

	gen, err := code.NewNumeric(cfg.Verification.CodeLength)
	if err != nil {
		log.Fatalf("code generator: %v", err)
	}
	verifications := verification.NewService(verification.ServiceDeps{
		Store:       store,
		Generator:   gen,
		Metrics:     m,
		TTL:         cfg.Verification.TTL,
		MaxAttempts: cfg.Verification.MaxAttempts,
	})

	sender, err := newSender(cfg)
	if err != nil {
		log.Fatalf("email provider: %v", err)
	}

	emailDeps := email.ServiceDeps{
		Verifications:    verifications,
		Sender:           sender,
		Users:            users.NewClient(cfg),
		Metrics:          m,
		AppName:          cfg.AppName,
		ResetLinkBaseURL: cfg.ResetLinkBaseURL,
	}

	// Invoice archive (optional, falls back to disabled).
	if cfg.S3InvoiceBucket != "" {
		if client, err := s3infra.NewClient(ctx, cfg); err == nil {
			emailDeps.Archive = s3infra.NewInvoiceArchive(client, cfg.S3InvoiceBucket)
		} else {
			log.Printf("WARN: invoice archive not available: %v", err)
		}
	}

	// Delivery-failure alerts (optional, falls back to disabled).
	if alerts, err := sns.NewAlertPublisher(ctx, cfg); err == nil {
		emailDeps.Alerts = alerts
	} else {
		log.Printf("WARN: SNS alerts not available: %v", err)
	}

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Emails:        email.NewService(emailDeps),
		Verifications: verifications,
		Gatherer:      prometheus.DefaultGatherer,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("server stopped with error: %v", err)
		closeStore()
		os.Exit(1)
	}
	log.Println("Server stopped")
}

func newStore(ctx context.Context, cfg *config.Config) (verification.Store, func(), error) {
	v := cfg.Verification
	switch v.Store {
	case "memory":
		s := memory.NewVerificationStore(v.TTL, v.MaxAttempts)
		return s, s.Close, nil
	case "redis":
		client, err := redisinfra.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = client.Close() }
		return redisinfra.NewVerificationStore(client, "verification", v.TTL, v.MaxAttempts), closeFn, nil
	case "dynamo":
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		// Creates the table if it doesn't exist.
		dynamo.Bootstrap(ctx, client, cfg.DynamoVerifications)
		return dynamo.NewVerificationStore(client, cfg.DynamoVerifications, v.TTL, v.MaxAttempts), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown VERIFICATION_STORE %q", v.Store)
	}
}

func newSender(cfg *config.Config) (email.Sender, error) {
	switch cfg.EmailProvider {
	case "emailjs":
		return emailjs.NewClient(cfg.EmailJS, nil), nil
	case "sendgrid":
		if cfg.SendGrid.APIKey == "" {
			return nil, errors.New("SENDGRID_API_KEY is required")
		}
		return sendgrid.NewMailer(cfg.SendGrid), nil
	case "smtp":
		return smtp.NewMailer(cfg), nil
	default:
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", cfg.EmailProvider)
	}
}

// logConfig prints the effective configuration. Keys are reported as
// configured or missing, never printed.
func logConfig(cfg *config.Config) {
	log.Printf("App: %s (env=%s, port=%s)", cfg.AppName, cfg.AppEnv, cfg.AppPort)
	log.Printf("Email provider: %s", cfg.EmailProvider)
	switch cfg.EmailProvider {
	case "emailjs":
		log.Printf("EmailJS service: %s, public key: %s, private key: %s",
			cfg.EmailJS.ServiceID, presence(cfg.EmailJS.PublicKey), presence(cfg.EmailJS.PrivateKey))
	case "sendgrid":
		log.Printf("SendGrid sender: %s, API key: %s", cfg.SendGrid.FromEmail, presence(cfg.SendGrid.APIKey))
	case "smtp":
		log.Printf("SMTP relay: %s:%s", cfg.SMTPHost, cfg.SMTPPort)
	}
	log.Printf("User API: %s", cfg.UserAPIURL)
	log.Printf("Verification: store=%s ttl=%s max_attempts=%d",
		cfg.Verification.Store, cfg.Verification.TTL, cfg.Verification.MaxAttempts)
}

func presence(secret string) string {
	if secret == "" {
		return "missing"
	}
	return "configured"
}

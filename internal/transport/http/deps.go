package http

import (
	"github.com/go-email-relay/internal/application/email"
	"github.com/go-email-relay/internal/application/verification"
	"github.com/prometheus/client_golang/prometheus"
)

// Deps holds the application services and registries the router serves.
type Deps struct {
	Emails        email.Service
	Verifications verification.Service
	// Gatherer backs /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer
}

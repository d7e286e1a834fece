package http

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/univio-api/internal/application/catalog"
	"github.com/univio-api/internal/application/challenge"
	"github.com/univio-api/internal/application/profile"
	"github.com/univio-api/internal/application/recovery"
	"github.com/univio-api/internal/application/registration"
	"github.com/univio-api/internal/application/session"
	"github.com/univio-api/internal/transport/http/middleware"
)

// Deps holds the services the router mounts. Sessions, Profiles, Catalog,
// Recovery and Tokens may be nil; their routes are then left unmounted.
type Deps struct {
	Challenges   challenge.Service
	Registration registration.Service
	Sessions     session.Service
	Profiles     profile.Service
	Catalog      catalog.Service
	Recovery     recovery.Service
	Tokens       middleware.TokenVerifier

	// Metrics is served at /metrics when set.
	Metrics *prometheus.Registry
	Checks  map[string]func(context.Context) error
}

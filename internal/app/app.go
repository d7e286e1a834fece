// Package app assembles the service graph shared by the API server and the
// admin CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/univio-api/internal/application/catalog"
	"github.com/univio-api/internal/application/challenge"
	"github.com/univio-api/internal/application/identity"
	"github.com/univio-api/internal/application/profile"
	"github.com/univio-api/internal/application/recovery"
	"github.com/univio-api/internal/application/registration"
	"github.com/univio-api/internal/application/session"
	"github.com/univio-api/internal/config"
	"github.com/univio-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/univio-api/internal/infrastructure/jwt"
	"github.com/univio-api/internal/infrastructure/memory"
	"github.com/univio-api/internal/infrastructure/postgres"
	redisinfra "github.com/univio-api/internal/infrastructure/redis"
	s3infra "github.com/univio-api/internal/infrastructure/s3"
	"github.com/univio-api/internal/infrastructure/smtp"
	"github.com/univio-api/internal/infrastructure/sns"
	"github.com/univio-api/internal/metrics"
	"github.com/univio-api/internal/notify"
)

// Verification store backends accepted in VERIFICATION_BACKEND.
const (
	BackendRedis  = "redis"
	BackendDynamo = "dynamo"
	BackendMemory = "memory"
)

// App holds the wired services. Catalog, Sessions and Profiles are nil when
// their backing configuration is absent.
type App struct {
	Config   *config.Config
	Registry *prometheus.Registry

	Challenges   challenge.Service
	Registration registration.Service
	Sessions     session.Service
	Profiles     profile.Service
	Catalog      catalog.Service
	Recovery     recovery.Service
	Tokens       *jwtinfra.Provider

	// Archive holds copies of sent mail; nil without MAIL_ARCHIVE_BUCKET.
	Archive *s3infra.Store

	// Checks are the dependency probes behind the readiness endpoint.
	Checks map[string]func(context.Context) error

	closers []func() error
}

// New connects every configured backend and builds the services on top.
// Callers must Close the returned App.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config:   cfg,
		Registry: metrics.NewRegistry(),
		Checks:   map[string]func(context.Context) error{},
	}
	collector := metrics.NewCollector(a.Registry)

	awsCfg, err := dynamo.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	dynamoClient := dynamo.NewClient(awsCfg, cfg.AWSEndpointURL)
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	identities := dynamo.NewIdentityRepo(dynamoClient, cfg.DynamoTables.Identities)
	users := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
	profiles := dynamo.NewProfileRepo(dynamoClient, cfg.DynamoTables.AcademicProfiles)
	dashboards := dynamo.NewDashboardRepo(dynamoClient, cfg.DynamoTables.DashboardMetrics)
	activity := dynamo.NewActivityRepo(dynamoClient, cfg.DynamoTables.ActivityLog)
	a.Checks["dynamodb"] = func(ctx context.Context) error {
		_, err := dynamoClient.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: &cfg.DynamoTables.Identities})
		return err
	}

	store, err := a.challengeStore(ctx, dynamoClient)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Archive = newArchive(awsCfg, cfg)
	notifier, err := newNotifier(cfg, awsCfg, collector, a.Archive)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	if cfg.DatabaseURL != "" {
		if a.Catalog, err = a.openCatalog(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
	} else {
		slog.Warn("DATABASE_URL not set, catalog search and academic id resolution disabled")
	}

	a.Challenges = challenge.NewService(challenge.ServiceDeps{
		Store:    store,
		Notifier: notifier,
		Metrics:  collector,
		TTL:      cfg.CodeTTL,
	})
	identitySvc := identity.NewService(identity.ServiceDeps{Repo: identities})
	a.Registration = registration.NewService(registration.ServiceDeps{
		Identities: identitySvc,
		Users:      users,
		Profiles:   profiles,
		Dashboards: dashboards,
		Activity:   activity,
		Verifier:   a.Challenges,
		Catalog:    a.Catalog,
		Notifier:   notifier,
		Metrics:    collector,
	})
	a.Recovery = recovery.NewService(recovery.ServiceDeps{
		Identities: identitySvc,
		Challenges: a.Challenges,
		Activity:   activity,
	})
	a.Profiles = profile.NewService(profile.ServiceDeps{
		Users:      users,
		Profiles:   profiles,
		Dashboards: dashboards,
		Activity:   activity,
		Catalog:    a.Catalog,
	})

	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		a.Tokens = p
		a.Sessions = session.NewService(session.ServiceDeps{
			Identities: identitySvc,
			Tokens:     p,
			Activity:   activity,
		})
	} else {
		slog.Warn("JWT provider not available, login and profile routes disabled", "err", err)
	}

	return a, nil
}

// Close releases every connection New opened.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) challengeStore(ctx context.Context, dynamoClient *dynamodb.Client) (challenge.Store, error) {
	cfg := a.Config
	switch cfg.VerificationBackend {
	case BackendRedis:
		rc, err := redisinfra.New(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		if rc == nil {
			return nil, fmt.Errorf("VERIFICATION_BACKEND=%s requires REDIS_URL", BackendRedis)
		}
		a.closers = append(a.closers, rc.Close)
		a.Checks["redis"] = rc.Health
		return redisinfra.NewChallengeStore(rc.Client, challenge.KeyPrefix, challenge.HistoryRetention), nil
	case BackendDynamo:
		return dynamo.NewChallengeStore(dynamoClient, cfg.DynamoTables.Challenges, challenge.HistoryRetention), nil
	case BackendMemory:
		slog.Warn("verification state is held in process memory; run a single instance only")
		return memory.NewChallengeStore(), nil
	default:
		return nil, fmt.Errorf("unknown VERIFICATION_BACKEND %q", cfg.VerificationBackend)
	}
}

func (a *App) openCatalog(ctx context.Context) (catalog.Service, error) {
	if err := postgres.RunMigrations(a.Config.DatabaseURL); err != nil {
		return nil, err
	}
	db, err := postgres.Open(ctx, a.Config.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	a.Checks["postgres"] = db.PingContext
	return catalog.NewService(postgres.NewCatalogRepo(db)), nil
}

func newArchive(awsCfg aws.Config, cfg *config.Config) *s3infra.Store {
	if cfg.MailArchiveBucket == "" {
		return nil
	}
	return s3infra.NewStore(s3infra.NewClient(awsCfg, cfg.AWSEndpointURL), cfg.MailArchiveBucket)
}

func newNotifier(cfg *config.Config, awsCfg aws.Config, collector *metrics.Collector, archive *s3infra.Store) (notify.Notifier, error) {
	renderer, err := notify.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	deps := notify.ServiceDeps{Renderer: renderer, Metrics: collector}

	switch cfg.NotifierBackend {
	case "sns":
		pub, err := sns.NewPublisher(sns.NewClient(awsCfg, cfg.AWSEndpointURL), cfg.SNSTopicARN)
		if err != nil {
			return nil, err
		}
		deps.Transport = notify.TopicTransport{Publisher: pub}
	case "smtp", "":
		deps.Transport = notify.MailTransport{Mailer: smtp.NewMailer(cfg)}
	default:
		return nil, fmt.Errorf("unknown NOTIFIER_BACKEND %q", cfg.NotifierBackend)
	}

	if archive != nil {
		deps.Archive = archive
	}
	return notify.NewService(deps), nil
}

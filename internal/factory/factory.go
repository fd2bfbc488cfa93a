package factory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"blog-admin/internal/bucketing"
	"blog-admin/internal/client"
	"blog-admin/internal/config"
	"blog-admin/internal/hashing"
	"blog-admin/internal/repository"
	"blog-admin/internal/repository/memory"
	"blog-admin/internal/repository/postgres"
	ratelimit "blog-admin/internal/repository/redis"
	"blog-admin/internal/repository/scylla"
	"blog-admin/internal/service"
	"blog-admin/internal/session"
	"blog-admin/internal/tls"
	"blog-admin/internal/util"
)

// migrator is implemented by the store clients that own a schema.
type migrator interface {
	Migrate(ctx context.Context) error
	Close() error
}

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config     *config.Config
	store      *config.StoreURL
	tlsManager *tls.TLSManager

	// Clients
	storeClient   migrator
	redisClient   *client.RedisClient
	kafkaProducer *client.KafkaProducer

	// Managers
	hasher           *hashing.Hasher
	bucketingManager *bucketing.BucketingManager
	issuer           *session.Issuer
	limiter          *ratelimit.RateLimitCache

	accountRepository repository.AccountRepository
	serviceFactory    *service.ServiceFactory

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFactory wires every dependency from a validated config. The account
// store is not dialed here; its connector opens on first use.
func NewFactory(cfg *config.Config) (*Factory, error) {
	store, err := config.ParseStoreURL(cfg.Store.URL)
	if err != nil {
		return nil, err
	}

	issuer, err := session.NewIssuer(cfg.Session.Secret, cfg.Session.TTL, cfg.Session.CookieName)
	if err != nil {
		return nil, fmt.Errorf("session issuer: %w", err)
	}

	f := &Factory{
		config:           cfg,
		store:            store,
		issuer:           issuer,
		hasher:           hashing.NewHasher(cfg.Hashing.BcryptCost),
		bucketingManager: bucketing.NewBucketingManager(cfg.Bucketing.AccountBuckets),
		closed:           make(chan struct{}),
	}

	if cfg.Server.EnableTLS {
		if f.tlsManager, err = tls.NewTLSManager(cfg); err != nil {
			return nil, fmt.Errorf("tls: %w", err)
		}
	}

	f.initializeStore()
	f.initializeClients()

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.String("store", store.Redacted()),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("rate_limit_enabled", f.limiter != nil),
		util.Bool("events_enabled", f.kafkaProducer != nil),
	)

	return f, nil
}

func (f *Factory) initializeStore() {
	switch f.store.Backend {
	case config.BackendScylla:
		c := scylla.NewScyllaClient(f.store, f.config)
		f.storeClient = c
		f.accountRepository = scylla.NewAccountRepository(c, f.bucketingManager)
	case config.BackendPostgres:
		c := postgres.NewPostgresClient(f.store, f.config)
		f.storeClient = c
		f.accountRepository = postgres.NewAccountRepository(c)
	default:
		util.Warn("Using in-memory account store; accounts are lost on restart")
		f.accountRepository = memory.NewAccountRepository()
	}
}

// initializeClients sets up the optional Redis limiter and Kafka publisher.
// Either may be absent; the service degrades rather than refusing to start.
func (f *Factory) initializeClients() {
	if f.config.Redis.URL != "" {
		if c, err := client.NewRedisClient(f.config); err != nil {
			util.Warn("Redis unavailable - login rate limiting disabled", util.ErrorField(err))
		} else {
			f.redisClient = c
			f.limiter = ratelimit.NewRateLimitCache(c, f.config.RateLimit.LoginAttempts, f.config.RateLimit.Window)
		}
	}

	if len(f.config.Kafka.Brokers) > 0 {
		if producer, err := client.NewKafkaProducer(f.config); err != nil {
			util.Warn("Kafka producer initialization failed - proceeding without security events", util.ErrorField(err))
		} else {
			f.kafkaProducer = producer
		}
	}
}

// ==============================
// Service Factory
// ==============================
func (f *Factory) ServiceFactory() *service.ServiceFactory {
	if f.serviceFactory == nil {
		f.serviceFactory = service.NewServiceFactory(f.accountRepository, f.hasher, f.EventPublisher())
	}
	return f.serviceFactory
}

// EventPublisher returns the Kafka producer, or a no-op when Kafka is off.
func (f *Factory) EventPublisher() service.EventPublisher {
	if f.kafkaProducer == nil {
		return service.NoopPublisher{}
	}
	return f.kafkaProducer
}

// LoginLimiter returns nil when Redis is not configured.
func (f *Factory) LoginLimiter() *ratelimit.RateLimitCache {
	return f.limiter
}

// ==============================
// Health Checks
// ==============================

// HealthCheck probes the account store and any configured optional clients
// in parallel and returns the first failure.
func (f *Factory) HealthCheck(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := f.accountRepository.HealthCheck(ctx); err != nil {
			return fmt.Errorf("account store: %w", err)
		}
		return nil
	})
	if f.redisClient != nil {
		g.Go(func() error {
			if err := f.redisClient.HealthCheck(ctx); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			return nil
		})
	}
	if f.kafkaProducer != nil {
		g.Go(func() error {
			if err := f.kafkaProducer.HealthCheck(ctx); err != nil {
				return fmt.Errorf("kafka: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// Migrate applies the store schema. The in-memory store has none.
func (f *Factory) Migrate(ctx context.Context) error {
	if f.storeClient == nil {
		return nil
	}
	util.Info("Applying store schema", util.String("backend", string(f.store.Backend)))
	return f.storeClient.Migrate(ctx)
}

func (f *Factory) Close() error {
	var errs []error
	f.closeOnce.Do(func() {
		close(f.closed)
		util.Info("Shutting down factory...")

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
				errs = append(errs, err)
			}
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
				errs = append(errs, err)
			}
		}

		if f.storeClient != nil {
			if err := f.storeClient.Close(); err != nil {
				util.Error("Failed to close account store", util.ErrorField(err))
				errs = append(errs, err)
			}
		}

		util.Info("Factory shutdown completed")
	})

	return errors.Join(errs...)
}

func (f *Factory) WaitForClose() {
	<-f.closed
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) Store() *config.StoreURL {
	return f.store
}

func (f *Factory) TLSManager() *tls.TLSManager {
	return f.tlsManager
}

func (f *Factory) Hasher() *hashing.Hasher {
	return f.hasher
}

func (f *Factory) Issuer() *session.Issuer {
	return f.issuer
}

func (f *Factory) AccountRepository() repository.AccountRepository {
	return f.accountRepository
}

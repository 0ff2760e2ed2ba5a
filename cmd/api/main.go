package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/pan-pacific/tracking-service/docs"
	"github.com/pan-pacific/tracking-service/internal/api/handlers"
	"github.com/pan-pacific/tracking-service/internal/application"
	"github.com/pan-pacific/tracking-service/internal/domain"
	"github.com/pan-pacific/tracking-service/internal/infrastructure/cache"
	"github.com/pan-pacific/tracking-service/internal/infrastructure/filestore"
	"github.com/pan-pacific/tracking-service/internal/infrastructure/fixtures"
	"github.com/pan-pacific/tracking-service/internal/infrastructure/instrumented"
	"github.com/pan-pacific/tracking-service/internal/infrastructure/memory"
	mongoRepo "github.com/pan-pacific/tracking-service/internal/infrastructure/mongodb"
	"github.com/pan-pacific/tracking-service/internal/infrastructure/postgres"
	"github.com/pan-pacific/tracking-service/pkg/logging"
	"github.com/pan-pacific/tracking-service/pkg/metrics"
	"github.com/pan-pacific/tracking-service/pkg/middleware"
	"github.com/pan-pacific/tracking-service/pkg/mongodb"
	"github.com/pan-pacific/tracking-service/pkg/resilience"
	"github.com/pan-pacific/tracking-service/pkg/tracing"
)

const serviceName = "tracking-service"

func main() {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	config, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}
	if err := run(context.Background(), config, appDependencies{}, signalCh); err != nil {
		os.Exit(1)
	}
}

type tracerProvider interface {
	Shutdown(ctx context.Context) error
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// storage is an opened backend and the function that releases it
type storage struct {
	repo  domain.ShipmentRepository
	close func(ctx context.Context) error
}

type appDependencies struct {
	initTracing    func(ctx context.Context, cfg *tracing.Config) (tracerProvider, error)
	newMetrics     func(cfg *metrics.Config) *metrics.Metrics
	openStorage    func(ctx context.Context, cfg *Config, logger *logging.Logger) (*storage, error)
	newRedisClient func(addr string) *redis.Client
	newHTTPServer  func(addr string, handler http.Handler) httpServer
}

func defaultDependencies() appDependencies {
	return appDependencies{
		initTracing: func(ctx context.Context, cfg *tracing.Config) (tracerProvider, error) {
			return tracing.Initialize(ctx, cfg)
		},
		newMetrics:  metrics.New,
		openStorage: openStorage,
		newRedisClient: func(addr string) *redis.Client {
			return redis.NewClient(&redis.Options{
				Addr:         addr,
				DialTimeout:  2 * time.Second,
				ReadTimeout:  500 * time.Millisecond,
				WriteTimeout: 500 * time.Millisecond,
			})
		},
		newHTTPServer: func(addr string, handler http.Handler) httpServer {
			return &http.Server{
				Addr:         addr,
				Handler:      handler,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 30 * time.Second,
			}
		},
	}
}

func (d appDependencies) withDefaults() appDependencies {
	def := defaultDependencies()
	if d.initTracing == nil {
		d.initTracing = def.initTracing
	}
	if d.newMetrics == nil {
		d.newMetrics = def.newMetrics
	}
	if d.openStorage == nil {
		d.openStorage = def.openStorage
	}
	if d.newRedisClient == nil {
		d.newRedisClient = def.newRedisClient
	}
	if d.newHTTPServer == nil {
		d.newHTTPServer = def.newHTTPServer
	}
	return d
}

func run(ctx context.Context, config *Config, deps appDependencies, signalCh <-chan os.Signal) error {
	deps = deps.withDefaults()
	if config == nil {
		var err error
		if config, err = loadConfig(); err != nil {
			return err
		}
	}

	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.ParseLevel(config.LogLevel)
	logConfig.Environment = config.Environment
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting tracking-service API", "backend", config.Storage.Backend)

	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = config.Tracing.OTLPEndpoint
	tracingConfig.Environment = config.Environment
	tracingConfig.Enabled = config.Tracing.Enabled
	tracingConfig.SampleRate = config.Tracing.SampleRate

	tracerProvider, err := deps.initTracing(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "enabled", tracingConfig.Enabled, "endpoint", tracingConfig.OTLPEndpoint)
	}

	m := deps.newMetrics(metrics.DefaultConfig(serviceName))

	store, err := deps.openStorage(ctx, config, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to open storage", "backend", config.Storage.Backend)
		return fmt.Errorf("failed to open %s storage: %w", config.Storage.Backend, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.close(closeCtx); err != nil {
			logger.WithError(err).Warn("Failed to close storage")
		}
	}()
	repo := instrumented.Wrap(store.repo, config.Storage.Backend, m, logger)

	if config.Tracking.SeedFixtures {
		seeded, err := fixtures.Seed(ctx, repo)
		if err != nil {
			logger.WithError(err).Error("Failed to seed fixtures")
			return err
		}
		if seeded > 0 {
			logger.Info("Seeded demo shipments", "count", seeded)
		}
	}

	gateway := application.NewMutationGateway(repo,
		application.WithTrackingIDGenerator(domain.NewTrackingIDGenerator(config.Tracking.IDPrefix, domain.SystemClock)),
	)
	if err := gateway.Load(ctx); err != nil {
		logger.WithError(err).Error("Failed to load shipments")
		return fmt.Errorf("failed to load shipments: %w", err)
	}
	logger.Info("Shipments loaded", "count", gateway.Len())

	shipmentService := application.NewShipmentApplicationService(gateway, logger, m)

	trackingOpts := []application.TrackingOption{
		application.WithCircuitBreaker(newTrackingBreaker(logger, m)),
	}
	if config.Tracking.FallbackEnabled {
		fallback, err := fixtures.Source()
		if err != nil {
			logger.WithError(err).Warn("Tracking fallback disabled")
		} else {
			trackingOpts = append(trackingOpts, application.WithFallback(fallback))
		}
	}
	if config.Redis.Addr != "" {
		client := deps.newRedisClient(config.Redis.Addr)
		defer client.Close()
		trackingOpts = append(trackingOpts, application.WithTrackingCache(cache.NewRedisTrackingCache(client, config.Redis.CacheTTL)))
		logger.Info("Tracking cache enabled", "addr", config.Redis.Addr, "ttl", config.Redis.CacheTTL)
	}
	trackingService := application.NewTrackingService(gateway, logger, m, trackingOpts...)
	unsubscribe := gateway.Subscribe(trackingService.InvalidateOnChange)
	defer unsubscribe()

	router := newRouter(routerDependencies{
		origins:   config.CORSOrigins,
		logger:    logger,
		metrics:   m,
		shipments: shipmentService,
		tracking:  trackingService,
		ready:     repo.Ping,
	})

	srv := deps.newHTTPServer(config.ServerAddr, router)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	if signalCh == nil {
		signalCh = make(chan os.Signal, 1)
	}
	select {
	case <-signalCh:
	case <-ctx.Done():
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
	return nil
}

type routerDependencies struct {
	origins   []string
	logger    *logging.Logger
	metrics   *metrics.Metrics
	shipments handlers.ShipmentService
	tracking  handlers.TrackingService
	ready     func(ctx context.Context) error
}

func newRouter(deps routerDependencies) *gin.Engine {
	router := gin.New()

	middlewareConfig := middleware.DefaultConfig(serviceName, deps.logger)
	middlewareConfig.AllowedOrigins = deps.origins
	middleware.Setup(router, middlewareConfig)
	router.Use(middleware.MetricsMiddleware(deps.metrics))
	router.Use(middleware.TracingMiddleware(middleware.DefaultTracingConfig(serviceName)))

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, deps.ready))
	router.GET("/metrics", middleware.MetricsEndpoint(deps.metrics))
	router.GET("/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", docs.OpenAPI)
	})

	apiV1 := router.Group("/api/v1")
	handlers.NewShipmentHandlers(deps.shipments, deps.logger).RegisterRoutes(apiV1)
	handlers.NewTrackingHandlers(deps.tracking, deps.logger).RegisterRoutes(apiV1)

	return router
}

func newTrackingBreaker(logger *logging.Logger, m *metrics.Metrics) *resilience.CircuitBreaker {
	config := resilience.DefaultCircuitBreakerConfig("tracking-primary")
	config.OnStateChange = func(name string, state int) {
		m.SetCircuitBreakerState(name, state)
		if state == resilience.StateOpen {
			m.RecordCircuitBreakerTrip(name)
		}
	}
	return resilience.NewCircuitBreaker(config, logger.Logger)
}

// openStorage opens the configured backend, retrying network backends while
// they start up.
func openStorage(ctx context.Context, cfg *Config, logger *logging.Logger) (*storage, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.Storage.Backend {
	case BackendMemory:
		return &storage{repo: memory.NewShipmentRepository(), close: noop}, nil

	case BackendFile:
		repo, err := filestore.Open(cfg.Storage.FilePath)
		if err != nil {
			return nil, err
		}
		logger.Info("Using file storage", "path", repo.Path())
		return &storage{repo: repo, close: noop}, nil

	case BackendMongoDB:
		mongoConfig := mongodb.DefaultConfig()
		mongoConfig.URI = cfg.MongoDB.URI
		mongoConfig.Database = cfg.MongoDB.Database

		var client *mongodb.Client
		err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() error {
			var err error
			client, err = mongodb.NewClient(ctx, mongoConfig)
			if err != nil {
				logger.WithError(err).Warn("MongoDB not reachable, retrying")
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		repo, err := mongoRepo.NewShipmentRepository(ctx, client.Database())
		if err != nil {
			_ = client.Close(ctx)
			return nil, err
		}
		logger.Info("Connected to MongoDB", "database", mongoConfig.Database)
		return &storage{repo: repo, close: client.Close}, nil

	case BackendPostgres:
		var repo *postgres.ShipmentRepository
		err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() error {
			var err error
			repo, err = postgres.Open(ctx, cfg.Postgres.DSN)
			if err != nil {
				logger.WithError(err).Warn("Postgres not reachable, retrying")
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to Postgres")
		return &storage{repo: repo, close: func(context.Context) error { return repo.Close() }}, nil
	}

	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/insightgrid/platform/config"
	delivery "github.com/insightgrid/platform/delivery/http"
	"github.com/insightgrid/platform/domain/collaborator"
	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/infrastructure/discovery"
	"github.com/insightgrid/platform/infrastructure/external"
	"github.com/insightgrid/platform/infrastructure/lineage"
	"github.com/insightgrid/platform/infrastructure/policy"
	"github.com/insightgrid/platform/pkg/logging"
	"github.com/insightgrid/platform/pkg/metrics"
	"github.com/insightgrid/platform/pkg/tracing"
	"github.com/insightgrid/platform/usecase"
)

const version = "1.0.0"

// Application holds the wired service components.
type Application struct {
	config *config.Config
	logger *logging.Logger

	collector     *metrics.Collector
	metricsServer *metrics.Server
	tracing       *tracing.Provider

	redisClient *redis.Client
	lineageRepo *lineage.PostgresRepository
	publisher   *lineage.KafkaPublisher
	registrar   *discovery.Registrar

	httpServer *delivery.Server
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      cfg.Logging.Output,
		ServiceName: cfg.Service.Name,
		Development: cfg.Service.Debug,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Cleanup()

	logger.Info("Starting mapping pipeline service",
		logging.String("version", version),
		logging.String("environment", cfg.Service.Environment))

	app, err := newApplication(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize application")
	}

	app.run()
}

func newApplication(cfg *config.Config, logger *logging.Logger) (*Application, error) {
	app := &Application{config: cfg, logger: logger}

	// Metrics
	app.collector = metrics.NewCollector(cfg.Metrics.Namespace)
	metricsPort, err := strconv.Atoi(cfg.Metrics.Port)
	if err != nil {
		return nil, fmt.Errorf("invalid metrics port: %s", cfg.Metrics.Port)
	}
	app.metricsServer = metrics.NewServer(metrics.Config{
		Enabled:   cfg.Metrics.Enabled,
		Namespace: cfg.Metrics.Namespace,
		Host:      cfg.Metrics.Host,
		Port:      metricsPort,
		Path:      cfg.Metrics.Path,
	}, app.collector)

	// Tracing
	app.tracing, err = tracing.Init(context.Background(), tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.Service.Name,
		ServiceVersion: version,
		Environment:    cfg.Service.Environment,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return nil, err
	}

	// Redis, used for the saga policy cache. Unreachable Redis degrades
	// to uncached policy reads.
	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Cache.Redis.GetRedisAddr(),
		Password:     cfg.Cache.Redis.Password,
		DB:           cfg.Cache.Redis.Database,
		PoolSize:     cfg.Cache.Redis.PoolSize,
		MinIdleConns: cfg.Cache.Redis.MinIdleConns,
		DialTimeout:  cfg.Cache.Redis.DialTimeout,
		ReadTimeout:  cfg.Cache.Redis.ReadTimeout,
		WriteTimeout: cfg.Cache.Redis.WriteTimeout,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.WithError(err).Warn("Redis unavailable, saga policy cache disabled")
		redisClient.Close()
		redisClient = nil
	}
	app.redisClient = redisClient

	// Lineage store
	app.lineageRepo, err = lineage.NewPostgresRepository(cfg.Database.PostgreSQL, logger, app.collector)
	if err != nil {
		return nil, err
	}
	if err := app.lineageRepo.EnsureSchema(context.Background()); err != nil {
		return nil, err
	}

	// Lineage topic
	var publisher lineage.Publisher
	if cfg.Kafka.Enabled {
		app.publisher = lineage.NewKafkaPublisher(cfg.Kafka, logger, app.collector)
		publisher = app.publisher
	}

	// Collaborator clients
	dataAccess := external.NewDataAccessClient(cfg.Collaborators.DataAccess, logger, app.collector)
	schemas := external.NewSchemaClient(cfg.Collaborators.SchemaService, logger, app.collector)
	semanticIndex := external.NewSemanticIndexClient(cfg.Collaborators.SemanticIndex, logger, app.collector)
	ruleGenerator := external.NewRuleGeneratorClient(cfg.Collaborators.RuleGenerator, logger, app.collector)
	fieldExtractor := external.NewFieldExtractorClient(cfg.Collaborators.FieldExtractor, logger, app.collector)
	dataQuality := external.NewDataQualityClient(cfg.Collaborators.DataQuality, logger, app.collector)
	transformer := external.NewTransformerClient(cfg.Collaborators.Transformer, logger, app.collector)
	reasoner := external.NewReasonerClient(cfg.Collaborators.Reasoner, logger, app.collector)

	// Saga policy source, cached through Redis
	var policySource collaborator.PolicySource = external.NewPolicyClient(cfg.Collaborators.Policy, logger, app.collector)
	if app.redisClient != nil {
		policySource = policy.NewCachedPolicySource(policySource, app.redisClient,
			cfg.Cache.TTL.SagaPolicy, logger, app.collector)
	}

	// Coordinator lookup through Consul; without discovery, the statically
	// configured coordinator endpoint is used.
	var locator collaborator.CoordinatorLocator
	if cfg.Discovery.Enabled {
		registrar, err := discovery.NewRegistrar(cfg.Discovery, logger)
		if err != nil {
			return nil, err
		}
		app.registrar = registrar

		consulLocator, err := discovery.NewConsulLocator(cfg.Discovery,
			func(baseURL string) collaborator.SagaCoordinator {
				return external.NewCoordinatorClient(baseURL, cfg.Collaborators.Coordinator, logger, app.collector)
			}, logger)
		if err != nil {
			return nil, err
		}
		locator = consulLocator
	} else if cfg.Collaborators.Coordinator.BaseURL != "" {
		locator = staticLocator{
			coordinator: external.NewCoordinatorClient(cfg.Collaborators.Coordinator.BaseURL,
				cfg.Collaborators.Coordinator, logger, app.collector),
		}
	}

	fallbackPolicy := entity.SagaPolicy{
		EnableSaga:     cfg.Saga.Enabled,
		SagaOperations: cfg.Saga.Operations,
	}
	sagaExecutor := usecase.NewSagaExecutor(policySource, locator, fallbackPolicy,
		cfg.Service.Name, cfg.Saga.PolicyTTL, logger, app.collector)

	lineageRecorder := lineage.NewRecorder(app.lineageRepo, publisher, dataAccess, logger)

	mappingUseCase := usecase.NewDataMappingUseCase(
		dataAccess, schemas, semanticIndex, ruleGenerator, fieldExtractor,
		dataQuality, transformer, reasoner, lineageRecorder, sagaExecutor,
		logger, app.collector)
	qualityUseCase := usecase.NewQualityEvaluationUseCase(
		dataAccess, dataQuality, reasoner, logger, app.collector)

	health := map[string]delivery.HealthChecker{
		"postgresql": app.lineageRepo,
	}
	if app.redisClient != nil {
		health["redis"] = redisChecker{client: app.redisClient}
	}

	handlers := delivery.NewHandlers(mappingUseCase, qualityUseCase, app.lineageRepo, health, logger, version)
	app.httpServer = delivery.NewServer(cfg.HTTP, cfg.Service.Name, handlers, logger, app.collector, cfg.Service.Debug)

	return app, nil
}

func (app *Application) run() {
	if app.config.Metrics.Enabled {
		go func() {
			if err := app.metricsServer.Start(); err != nil {
				app.logger.WithError(err).Warn("Metrics server stopped")
			}
		}()
	}

	if app.registrar != nil {
		if err := app.registrar.Register(app.config.Service.Name, app.config.HTTP.Port); err != nil {
			app.logger.WithError(err).Warn("Consul registration failed, continuing unregistered")
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.httpServer.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			app.logger.WithError(err).Error("HTTP server failed")
		}
	case sig := <-quit:
		app.logger.Info("Shutdown signal received",
			logging.String("signal", sig.String()))
	}

	app.shutdown()
}

func (app *Application) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), app.config.Service.ShutdownTimeout)
	defer cancel()

	if app.registrar != nil {
		if err := app.registrar.Deregister(); err != nil {
			app.logger.WithError(err).Warn("Consul deregistration failed")
		}
	}

	if err := app.httpServer.Stop(ctx); err != nil {
		app.logger.WithError(err).Warn("HTTP server shutdown failed")
	}

	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			app.logger.WithError(err).Warn("Kafka writer close failed")
		}
	}

	if app.lineageRepo != nil {
		if err := app.lineageRepo.Close(); err != nil {
			app.logger.WithError(err).Warn("Database close failed")
		}
	}

	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.WithError(err).Warn("Redis close failed")
		}
	}

	if err := app.metricsServer.Stop(); err != nil {
		app.logger.WithError(err).Warn("Metrics server shutdown failed")
	}

	if app.tracing != nil {
		if err := app.tracing.Shutdown(ctx); err != nil {
			app.logger.WithError(err).Warn("Tracer shutdown failed")
		}
	}

	app.logger.Info("Service stopped")
}

// staticLocator serves a fixed coordinator endpoint when service
// discovery is disabled.
type staticLocator struct {
	coordinator collaborator.SagaCoordinator
}

func (l staticLocator) Locate(ctx context.Context) (collaborator.SagaCoordinator, error) {
	return l.coordinator, nil
}

// redisChecker adapts the Redis client to the health check interface.
type redisChecker struct {
	client *redis.Client
}

func (c redisChecker) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

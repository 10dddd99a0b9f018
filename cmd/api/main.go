package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Ramsey-B/sorrel/config"
	"github.com/Ramsey-B/sorrel/internal/handlers"
	"github.com/Ramsey-B/sorrel/internal/repositories/entitygraph"
	"github.com/Ramsey-B/sorrel/internal/repositories/linkageproposal"
	"github.com/Ramsey-B/sorrel/internal/repositories/mention"
	"github.com/Ramsey-B/sorrel/pkg/database"
	"github.com/Ramsey-B/sorrel/pkg/events"
	"github.com/Ramsey-B/sorrel/pkg/graph"
	"github.com/Ramsey-B/sorrel/pkg/kafka"
	"github.com/Ramsey-B/sorrel/pkg/linkage"
	"github.com/Ramsey-B/sorrel/pkg/matching"
	"github.com/Ramsey-B/sorrel/pkg/middleware"
	"github.com/Ramsey-B/sorrel/pkg/normalize"
	"github.com/Ramsey-B/sorrel/pkg/processor"
	"github.com/Ramsey-B/sorrel/pkg/resolution"
	"github.com/Ramsey-B/sorrel/pkg/startup"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
	"github.com/Ramsey-B/sorrel/pkg/tracing/exporters"
)

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to bind config: %v\n", err)
		os.Exit(1)
	}

	logger, flush, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer flush()

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Service exited with error")
		flush()
		os.Exit(1)
	}
}

// funcDependency adapts start/stop closures to the startup orchestrator
type funcDependency struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (d *funcDependency) GetName() string     { return d.name }
func (d *funcDependency) DependsOn() []string { return d.dependsOn }

func (d *funcDependency) Start(ctx context.Context) error {
	return d.start(ctx)
}

func (d *funcDependency) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	return d.stop(ctx)
}

func run(cfg config.Config, logger ectologger.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := setupTracing(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownTracing()

	var db database.DB
	var graphClient *graph.Client
	var consumer *kafka.Consumer
	var producer *kafka.Producer
	var e *echo.Echo
	var health *handlers.HealthHandler

	orchestrator := startup.NewStartup(logger, cfg.StartupMaxAttempts)

	orchestrator.AddDependency(&funcDependency{
		name: "postgres",
		start: func(ctx context.Context) error {
			dsn := fmt.Sprintf(
				"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
				cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
			)
			sqlxDB, err := sqlx.ConnectContext(ctx, cfg.DatabaseDriver, dsn)
			if err != nil {
				return err
			}
			sqlxDB.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
			sqlxDB.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
			sqlxDB.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

			driver, err := postgres.WithInstance(sqlxDB.DB, &postgres.Config{})
			if err != nil {
				return err
			}
			migrations := database.NewMigrationService(logger, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             uint(cfg.DatabaseMigrationVersion),
				Force:               cfg.DatabaseMigrationForce,
				AutoRollback:        cfg.DatabaseMigrationAutoRollback,
			})
			if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
				return err
			}

			db = database.NewDatabaseInstance(sqlxDB, logger)
			return nil
		},
		stop: func(ctx context.Context) error {
			if db == nil {
				return nil
			}
			return db.Close()
		},
	})

	if cfg.GraphDBEnabled {
		orchestrator.AddDependency(&funcDependency{
			name: "graph",
			start: func(ctx context.Context) error {
				client, err := graph.NewClient(graph.Config{
					Host:     cfg.GraphDBHost,
					Port:     cfg.GraphDBPort,
					Username: cfg.GraphDBUser,
					Password: cfg.GraphDBPassword,
				}, logger)
				if err != nil {
					return err
				}
				if err := client.VerifyConnectivity(ctx); err != nil {
					return err
				}
				graphClient = client
				return nil
			},
			stop: func(ctx context.Context) error {
				if graphClient == nil {
					return nil
				}
				return graphClient.Close(ctx)
			},
		})
	}

	orchestrator.AddDependency(&funcDependency{
		name: "kafka-producer",
		start: func(ctx context.Context) error {
			producer = kafka.NewProducer(kafka.ProducerConfig{
				Brokers:      cfg.KafkaBrokers,
				Topic:        cfg.KafkaEventsTopic,
				BatchSize:    cfg.KafkaBatchSize,
				BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
				RequiredAcks: cfg.KafkaRequiredAcks,
				Compression:  cfg.KafkaCompression,
			}, logger)
			return nil
		},
		stop: func(ctx context.Context) error {
			if producer == nil {
				return nil
			}
			return producer.Close()
		},
	})

	apiDeps := []string{"postgres", "kafka-producer"}
	if cfg.GraphDBEnabled {
		apiDeps = append(apiDeps, "graph")
	}
	consumerDeps := append([]string{}, apiDeps...)

	if cfg.KafkaConsumerEnabled {
		orchestrator.AddDependency(&funcDependency{
			name:      "kafka-consumer",
			dependsOn: consumerDeps,
			start: func(ctx context.Context) error {
				proc := buildProcessor(cfg, logger, db, producer)
				consumer = kafka.NewConsumer(cfg, logger, proc.HandleMessage)
				return consumer.Start(context.Background())
			},
			stop: func(ctx context.Context) error {
				if consumer == nil {
					return nil
				}
				return consumer.Stop()
			},
		})
		apiDeps = append(apiDeps, "kafka-consumer")
	}

	orchestrator.AddDependency(&funcDependency{
		name:      "api",
		dependsOn: apiDeps,
		start: func(ctx context.Context) error {
			e, health = buildServer(cfg, logger, db, graphClient, consumer, producer)
			go func() {
				addr := fmt.Sprintf(":%d", cfg.Port)
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.WithError(err).Error("HTTP server stopped unexpectedly")
					cancel()
				}
			}()
			return nil
		},
		stop: func(ctx context.Context) error {
			if e == nil {
				return nil
			}
			return e.Shutdown(ctx)
		},
	})

	if err := orchestrator.Start(ctx); err != nil {
		return err
	}
	health.SetReady(true)
	logger.WithFields(map[string]any{"port": cfg.Port}).Infof("%s is running", cfg.AppName)

	<-ctx.Done()
	logger.Info("Shutting down")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	return orchestrator.Stop(stopCtx)
}

// buildProcessor wires the ingestion path used by the Kafka consumer
func buildProcessor(cfg config.Config, logger ectologger.Logger, db database.DB, producer *kafka.Producer) *processor.Processor {
	mentionRepo := mention.NewRepository(db, logger)
	proposalRepo := linkageproposal.NewRepository(db, logger)
	emitter := events.NewEmitter(producer, logger)

	matcher := matching.NewMatcher(normalize.NewDictionary())
	scanner := matching.NewEngine(logger, matcher, mentionRepo, proposalRepo, emitter, matching.EngineConfig{
		MinConfidence: cfg.MatchMinConfidence,
		WorkerCount:   cfg.MatchWorkerCount,
	})

	return processor.NewProcessor(logger, mentionRepo, scanner)
}

// buildServer wires the HTTP surface
func buildServer(cfg config.Config, logger ectologger.Logger, db database.DB, graphClient *graph.Client, consumer *kafka.Consumer, producer *kafka.Producer) (*echo.Echo, *handlers.HealthHandler) {
	mentionRepo := mention.NewRepository(db, logger)
	proposalRepo := linkageproposal.NewRepository(db, logger)
	graphRepo := entitygraph.NewRepository(db, logger)
	emitter := events.NewEmitter(producer, logger)

	var projector resolution.Projector
	var network handlers.NetworkReader
	if graphClient != nil {
		projector = graph.NewProjector(graphClient, logger)
		network = graph.NewNetworkService(graphClient, logger)
	}

	resolver := resolution.NewEngine(logger, graphRepo, db, projector)
	manager := linkage.NewManager(logger, proposalRepo, resolver, db, emitter)

	matcher := matching.NewMatcher(normalize.NewDictionary())
	scanner := matching.NewEngine(logger, matcher, mentionRepo, proposalRepo, emitter, matching.EngineConfig{
		MinConfidence: cfg.MatchMinConfidence,
		WorkerCount:   cfg.MatchWorkerCount,
	})
	ingestor := processor.NewProcessor(logger, mentionRepo, scanner)

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	if cfg.TracingEnabled {
		e.Use(otelecho.Middleware(cfg.AppName))
	}
	e.Use(middleware.Logger(logger))

	health := handlers.NewHealthHandler(db, graphChecker(graphClient), consumerChecker(consumer), version)
	health.Register(e)

	g := e.Group("/api/v1/cases/:case_id", middleware.Context())
	handlers.NewMentionHandler(ingestor, logger).Register(g)
	handlers.NewResolutionHandler(scanner, resolver, emitter, logger).Register(g)
	handlers.NewProposalHandler(manager, logger).Register(g)
	handlers.NewEntityHandler(resolver, graphRepo, network, logger).Register(g)

	return e, health
}

// version is stamped at build time
var version = "dev"

// graphChecker avoids a typed-nil interface when the projection is disabled
func graphChecker(client *graph.Client) handlers.GraphChecker {
	if client == nil {
		return nil
	}
	return client
}

func consumerChecker(consumer *kafka.Consumer) handlers.ConsumerChecker {
	if consumer == nil {
		return nil
	}
	return consumer
}

func setupTracing(ctx context.Context, cfg config.Config) (func(), error) {
	if !cfg.TracingEnabled {
		tracing.SetTracer(nil)
		return func() {}, nil
	}

	var exporter sdktrace.SpanExporter
	if cfg.OTLPProtocol == "console" {
		// local runs trace without a collector
		exporter = &exporters.ConsoleExporter{}
	} else {
		var err error
		exporter, err = exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.OTLPEndpoint,
			Protocol: cfg.OTLPProtocol,
			Insecure: cfg.OTLPInsecure,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			return nil, err
		}
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(sdkresource.NewSchemaless(
			attribute.String("service.name", cfg.AppName),
		)),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	tracing.SetTracer(provider.Tracer(cfg.AppName))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx)
	}, nil
}

// Command server wires the sale ledger dependencies and runs the HTTP
// API. Business logic lives in the internal services packages; main
// only builds the object graph and manages the process lifecycle.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"salegate/internal/asset"
	jwttoken "salegate/internal/jwt_token"
	"salegate/internal/ownership"
	ownershiphandler "salegate/internal/ownership/handler"
	ownershipmetrics "salegate/internal/ownership/metrics"
	ownershipstore "salegate/internal/ownership/store"
	"salegate/internal/platform/config"
	"salegate/internal/platform/httpserver"
	"salegate/internal/platform/logger"
	platformredis "salegate/internal/platform/redis"
	"salegate/internal/pricing"
	"salegate/internal/sale"
	salehandler "salegate/internal/sale/handler"
	salemetrics "salegate/internal/sale/metrics"
	salestore "salegate/internal/sale/store"
	"salegate/internal/salewindow"
	httptransport "salegate/internal/transport/http"
	id "salegate/pkg/domain"
	"salegate/pkg/platform/audit"
	auditmemory "salegate/pkg/platform/audit/store/memory"
	auditpostgres "salegate/pkg/platform/audit/store/postgres"
	auditworker "salegate/pkg/platform/audit/worker"
)

func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage selection: Postgres when configured, in-memory otherwise.
	var (
		db             *sql.DB
		registryStore  ownership.RegistryStore
		ledgerStore    sale.LedgerStore
		auditStore     audit.Store
		auditOutbox    *auditpostgres.Store
		healthCheckers = map[string]httptransport.HealthChecker{}
	)
	if cfg.Postgres.URL != "" {
		db, err = sql.Open("postgres", cfg.Postgres.URL)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		ownershipPG := ownershipstore.NewPostgres(db)
		salePG := salestore.NewPostgres(db)
		auditOutbox = auditpostgres.New(db)
		for _, migrate := range []func(context.Context) error{
			ownershipPG.Migrate, salePG.Migrate, auditOutbox.Migrate,
		} {
			if err := migrate(ctx); err != nil {
				log.Error("migration failed", "error", err)
				os.Exit(1)
			}
		}
		registryStore = ownershipPG
		ledgerStore = salePG
		auditStore = auditOutbox
		healthCheckers["postgres"] = dbHealth{db}
	} else {
		registryStore = ownershipstore.NewInMemory()
		ledgerStore = salestore.NewInMemory()
		auditStore = auditmemory.New()
	}

	auditPublisher := audit.NewPublisher(auditStore)

	// Pause switch: Redis-backed when configured so a halt survives
	// restarts and is shared across replicas.
	var pauseSwitch sale.PauseSwitch
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		pauseSwitch = salewindow.NewRedisPause(redisClient.Client)
		healthCheckers["redis"] = redisClient
	} else {
		pauseSwitch = salewindow.NewMemoryPause()
	}

	ownershipService := ownership.New(registryStore,
		ownership.WithLogger(log),
		ownership.WithAuditPublisher(auditPublisher),
		ownership.WithMetrics(ownershipmetrics.New()),
	)
	if err := ownershipService.Bootstrap(ctx, cfg.Sale.Master); err != nil {
		log.Error("failed to bootstrap ownership registry", "error", err)
		os.Exit(1)
	}

	vault := asset.NewInMemoryVault(cfg.Sale.SupplyCap)
	window := salewindow.NewWindow(cfg.Sale.WindowStart, cfg.Sale.WindowEnd)
	policy := pricing.New(cfg.Sale.BaseRate)

	saleService := sale.New(
		ledgerStore,
		ownershipService,
		vault,
		window,
		pauseSwitch,
		policy,
		sale.Config{
			SupplyCap:             cfg.Sale.SupplyCap,
			InitialStage:          id.StageEarly,
			VerificationRequired:  cfg.Sale.VerificationRequired,
			SettlementDestination: cfg.Sale.SettlementDestination,
		},
		sale.WithLogger(log),
		sale.WithAuditPublisher(auditPublisher),
		sale.WithMetrics(salemetrics.New()),
	)
	if err := saleService.Bootstrap(ctx); err != nil {
		log.Error("failed to bootstrap sale ledger", "error", err)
		os.Exit(1)
	}

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)

	router := httptransport.NewRouter(httptransport.Deps{
		Ownership:    ownershiphandler.New(ownershipService, log),
		Sale:         salehandler.New(saleService, log),
		JWTValidator: jwttoken.NewJWTServiceAdapter(jwtService),
		Logger:       log,
		Health:       healthCheckers,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting salegate", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// The audit worker needs the Postgres outbox and a Kafka cluster;
	// without either, events stay queriable in the outbox table.
	if auditOutbox != nil && len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := kgo.NewClient(kgo.SeedBrokers(cfg.Kafka.Brokers...))
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaClient.Close()

		if err := auditworker.EnsureTopic(ctx, kafkaClient, cfg.Kafka.Topic); err != nil {
			log.Error("failed to ensure audit topic", "error", err)
			os.Exit(1)
		}
		worker := auditworker.New(auditOutbox, kafkaClient, cfg.Kafka.Topic, log)
		g.Go(func() error {
			return worker.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

type dbHealth struct {
	db *sql.DB
}

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

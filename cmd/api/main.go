package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/healthhub/healthhub-service/internal/api/http"
	"github.com/healthhub/healthhub-service/internal/api/http/handlers"
	"github.com/healthhub/healthhub-service/internal/auth"
	"github.com/healthhub/healthhub-service/internal/config"
	"github.com/healthhub/healthhub-service/internal/events"
	"github.com/healthhub/healthhub-service/internal/notification"
	"github.com/healthhub/healthhub-service/internal/observability"
	"github.com/healthhub/healthhub-service/internal/persistence"
	"github.com/healthhub/healthhub-service/internal/repository"
	"github.com/healthhub/healthhub-service/internal/repository/memory"
	"github.com/healthhub/healthhub-service/internal/service"
	"github.com/healthhub/healthhub-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	deps := map[string]handlers.Pinger{}
	if pg.PoolHandle() != nil {
		deps["postgres"] = pg
	}

	var (
		subjects *repository.SubjectDirectory
		programs repository.ProgramRepository
	)
	if pool := pg.PoolHandle(); pool != nil {
		subjects = repository.NewSubjectDirectory(repository.NewClinicianRepository(pool), repository.NewPatientRepository(pool))
		programs = repository.NewProgramRepository(pool)
	} else {
		logger.Warn("using in-memory subject and program stores; data is lost on restart")
		subjects = repository.NewSubjectDirectory(memory.NewClinicianStore(), memory.NewPatientStore())
		programs = memory.NewProgramStore()
	}

	var ledger repository.TokenLedger
	switch cfg.Ledger.Backend {
	case config.LedgerBackendPostgres:
		ledger = repository.NewTokenLedger(pg.PoolHandle())
	case config.LedgerBackendRedis:
		redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("failed to connect redis token ledger", zap.Error(err))
		}
		defer redis.Close()
		deps["redis"] = redis
		ledger = repository.NewRedisTokenLedger(redis.Client, cfg.Ledger.RedisPrefix)
	default:
		logger.Warn("using in-memory token ledger; sessions are lost on restart")
		ledger = memory.NewLedger()
	}
	logger.Info("token ledger ready", zap.String("backend", cfg.Ledger.Backend))

	renderer, err := notification.NewRenderer(cfg.App.ClientURL)
	if err != nil {
		logger.Fatal("failed to load e-mail templates", zap.Error(err))
	}
	var transport notification.Transport = notification.NewLogTransport(logger)
	if cfg.Notification.WebhookURL != "" {
		transport = notification.NewWebhookTransport(cfg.Notification.WebhookURL, 10*time.Second)
	}
	mailer := notification.NewMailer(renderer, transport, cfg.Notification.EmailFrom, cfg.Notification.SenderName)

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, mailer, logger, cfg.App.ClientURL), logger)
	sweeperDone := worker.StartTokenSweeper(ctx, ledger, cfg.Ledger.SweepInterval, logger)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		Subjects:   subjects,
		Ledger:     ledger,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	accountService := service.NewAccountService(*cfg, subjects, logger)
	careTeamService := service.NewCareTeamService(subjects, programs, logger)
	programService := service.NewProgramService(service.ProgramDependencies{
		Programs:   programs,
		Subjects:   subjects,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), subjects)

	metrics := observability.NewMetrics()
	app := httptransport.NewApp(cfg.App.Name, logger, metrics, cfg.App.RequestTimeout())

	authHandler := handlers.NewAuthHandler(authService, cfg.Auth)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps, metrics),
		Auth:           authHandler,
		Clinicians:     handlers.NewClinicianHandler(authService, accountService, careTeamService, authHandler),
		Patients:       handlers.NewPatientHandler(authService, accountService, careTeamService),
		Programs:       handlers.NewProgramHandler(programService),
		Profile:        handlers.NewProfileHandler(accountService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	cancel()
	<-sweeperDone
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/dtcstudio/taskboard/internal/api/http"
	"github.com/dtcstudio/taskboard/internal/api/http/handlers"
	"github.com/dtcstudio/taskboard/internal/auth"
	"github.com/dtcstudio/taskboard/internal/config"
	"github.com/dtcstudio/taskboard/internal/events"
	"github.com/dtcstudio/taskboard/internal/notify"
	"github.com/dtcstudio/taskboard/internal/observability"
	"github.com/dtcstudio/taskboard/internal/persistence"
	"github.com/dtcstudio/taskboard/internal/repository"
	"github.com/dtcstudio/taskboard/internal/service"
	"github.com/dtcstudio/taskboard/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
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

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	pool := pg.PoolHandle()
	taskRepo := repository.NewTaskRepository(pool)
	logRepo := repository.NewUpdateLogRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	reportRepo := repository.NewReportRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)

	boardCache := persistence.NewBoardCache(redis, cfg.Scheduler.BoardCacheTTL(), logger)
	deduper := persistence.NewReminderDeduper(redis, 0)

	sender, err := notify.NewTelegramSender(cfg.Telegram.Token, logger)
	if err != nil {
		logger.Fatal("failed to init telegram sender", zap.Error(err))
	}

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		StaffRepo:         staffRepo,
		PasswordResetRepo: resetRepo,
	})
	staffService := service.NewStaffService(*cfg, staffRepo)
	taskService := service.NewTaskService(service.TaskDependencies{
		TaskRepo:   taskRepo,
		LogRepo:    logRepo,
		StaffRepo:  staffRepo,
		Cache:      boardCache,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	sweepService := service.NewSweepService(service.SweepDependencies{
		TaskRepo:   taskRepo,
		Cache:      boardCache,
		Deduper:    deduper,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: notificationRepo,
		TaskRepo:         taskRepo,
		StaffRepo:        staffRepo,
		Dispatcher:       dispatcher,
		Sender:           sender,
		Logger:           logger,
	})
	reportService := service.NewReportService(service.ReportDependencies{
		ReportRepo: reportRepo,
		TaskRepo:   taskRepo,
		StaffRepo:  staffRepo,
		Logger:     logger,
	})

	worker.StartNotificationWorker(notificationService)

	var scheduler *worker.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler, err = worker.NewScheduler(cfg.Scheduler, sweepService, notificationService, logger)
		if err != nil {
			logger.Fatal("failed to init scheduler", zap.Error(err))
		}
		scheduler.Start()
	}

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), staffRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Staff:          handlers.NewStaffHandler(authService, staffService),
		Tasks:          handlers.NewTasksHandler(taskService),
		Reports:        handlers.NewReportsHandler(reportService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if scheduler != nil {
		scheduler.Stop()
	}
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

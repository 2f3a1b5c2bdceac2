package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/taskflow/api/handler"
	"github.com/fastygo/taskflow/internal/config"
	"github.com/fastygo/taskflow/internal/infrastructure/buffer"
	"github.com/fastygo/taskflow/internal/infrastructure/monitor"
	"github.com/fastygo/taskflow/internal/middleware"
	"github.com/fastygo/taskflow/internal/router"
	"github.com/fastygo/taskflow/internal/services"
	"github.com/fastygo/taskflow/internal/services/lifecycle"
	"github.com/fastygo/taskflow/pkg/httpcontext"
	"github.com/fastygo/taskflow/pkg/logger"
	"github.com/fastygo/taskflow/usecase"
	activityUC "github.com/fastygo/taskflow/usecase/activity"
	adminUC "github.com/fastygo/taskflow/usecase/admin"
	authUC "github.com/fastygo/taskflow/usecase/auth"
	profileUC "github.com/fastygo/taskflow/usecase/profile"
	taskUC "github.com/fastygo/taskflow/usecase/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
		Service:  cfg.AppName,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = uuid.NewString()
		zapLogger.Warn("JWT_SECRET not set, tokens are signed with an ephemeral secret")
	}

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	appCtx, cancel := manager.Watch(context.Background())
	defer cancel()

	st, err := openStores(appCtx, cfg, manager, zapLogger)
	if err != nil {
		zapLogger.Fatal("store initialisation failed", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}

	var spoolStore *buffer.Store
	if cfg.Spool.Enabled {
		spoolStore, err = buffer.Open(cfg.Spool.Path, "audit")
		if err != nil {
			zapLogger.Fatal("failed to open audit spool", zap.Error(err))
		}
		manager.Register(lifecycle.StageStores, "spool", func(ctx context.Context) error {
			return spoolStore.Close()
		})
	}

	mon := monitor.New(st.checks, spoolStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register(lifecycle.StageWorkers, "monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	var spool usecase.AuditSpool
	if spoolStore != nil {
		processor := services.NewSpoolProcessor(
			spoolStore,
			mon,
			st.activity,
			zapLogger,
			services.ProcessorConfig{
				Interval:   cfg.Spool.SyncInterval,
				BatchSize:  cfg.Spool.BatchSize,
				MaxRetries: cfg.Spool.MaxRetry,
				Retention:  time.Duration(cfg.Spool.RetentionHours) * time.Hour,
			},
		)
		processor.Start()
		manager.Register(lifecycle.StageWorkers, "spool_processor", processor.Stop)
		spool = services.NewSpoolBridge(processor)
	}

	recorder := activityUC.NewRecorder(st.activity, spool, zapLogger)

	authUseCase := authUC.New(st.users, st.sessions, authUC.TokenConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.TTL,
	}, zapLogger)
	profileUseCase := profileUC.New(st.users, zapLogger)
	adminUseCase := adminUC.New(st.users, st.tasks, st.sessions, zapLogger)
	taskUseCase := taskUC.New(st.tasks, st.users, recorder, zapLogger)
	activityService := activityUC.NewService(st.activity, st.users, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:     apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger),
		Profile:  apiHandler.NewProfileHandler(profileUseCase, ctxAdapter, zapLogger),
		Task:     apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger),
		Activity: apiHandler.NewActivityHandler(activityService, ctxAdapter, zapLogger),
		Admin:    apiHandler.NewAdminHandler(adminUseCase, ctxAdapter, zapLogger),
		Health:   apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}
	if cfg.IsDevelopment() {
		handlers.ExposeErrors()
	}

	authMiddleware := middleware.Authenticate(authUseCase, ctxAdapter, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:            middleware.AccessLog(zapLogger)(r.Handler),
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		Concurrency:        cfg.HTTP.MaxConn,
		Name:               cfg.AppName,
		MaxRequestBodySize: 1 << 20,
	}

	go func() {
		zapLogger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.String("store", cfg.Store.Driver),
			zap.Bool("spool", spoolStore != nil),
		)
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register(lifecycle.StageIngress, "http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}

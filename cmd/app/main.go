package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"questtracker/internal/api"
	"questtracker/internal/cache"
	"questtracker/internal/middleware"
	"questtracker/internal/repository"
	"questtracker/internal/service"
	"questtracker/pkg/auth"
	"questtracker/pkg/logger"
	"questtracker/pkg/monitoring"
	"questtracker/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitoring.Init()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		zapLogger.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			zapLogger.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	ledgerCfg, err := cfg.Ledger.toService()
	if err != nil {
		zapLogger.Fatal("Invalid ledger config", zap.Error(err))
	}

	repo, err := repository.New(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	if err = repo.Migrate(ctx); err != nil {
		zapLogger.Fatal("Failed to migrate schema", zap.Error(err))
	}
	if err = repo.SeedBadges(ctx, service.DefaultBadgeCatalog); err != nil {
		zapLogger.Fatal("Failed to seed badge catalog", zap.Error(err))
	}

	var leaderboard service.LeaderboardCache
	if cfg.Redis.Enabled {
		lc, err := cache.NewLeaderboardCache(cfg.Redis)
		if err != nil {
			zapLogger.Warn("Leaderboard cache unavailable, reading from database", zap.Error(err))
		} else {
			defer lc.Close()
			leaderboard = lc
		}
	}

	clock := service.Clock(time.Now)
	badges := service.NewBadgeEvaluator(repo, service.DefaultBadgeCatalog, clock)
	templates := service.NewTemplateExpander(repo, ledgerCfg, clock)

	svc := service.NewService(
		service.NewUserService(repo, leaderboard, ledgerCfg, clock),
		service.NewQuestService(repo, badges, ledgerCfg, clock),
		service.NewSettlementService(repo, badges, templates, ledgerCfg, clock),
		service.NewDashboardService(repo, templates, ledgerCfg, clock),
	)

	telegramAuth := auth.NewTelegramAuth(cfg.TelegramAuth.TelegramBotToken, cfg.TelegramAuth.DebugMode)
	authorization := middleware.NewAuthorization(svc.UserService)
	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimit)

	router := gin.New()
	router.Use(gin.Recovery())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	config.AllowHeaders = []string{"*"}
	config.AllowCredentials = true
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))
	router.Use(monitoring.MetricsMiddleware())
	if cfg.Tracing.Enabled {
		router.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}

	router.GET("/metrics", monitoring.PrometheusHandler())
	api.NewHealthRoutes(router, repo)

	guards := []gin.HandlerFunc{telegramAuth.TelegramAuthMiddleware(), limiter.Middleware()}

	a := router.Group("/api/v1")
	api.NewUserRoutes(a, svc.UserService, guards...)
	api.NewQuestRoutes(a, svc.QuestService, guards...)
	api.NewDayRoutes(a, svc.SettlementService, guards...)
	api.NewDashboardRoutes(a, svc.DashboardService, guards...)
	api.NewAdminRoutes(a, svc.QuestService, append(guards, authorization.AdminOnly())...)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLogger.Info("Starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zapLogger.Info("Shutting down server")

		timeout := cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLogger.Error("Server stopped with error", zap.Error(err))
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"mailgallery/backend/internal/app"
	"mailgallery/backend/internal/auth"
	jwtpkg "mailgallery/backend/internal/auth/jwt"
	"mailgallery/backend/internal/config"
	"mailgallery/backend/internal/google"
	"mailgallery/backend/internal/health"
	"mailgallery/backend/internal/monitoring"
	"mailgallery/backend/internal/service"
	"mailgallery/backend/internal/thumbnail"
	httptransport "mailgallery/backend/internal/transport/http"
)

const version = "0.3.0"

// main 启动 HTTP API，可选地在后台定时生成缩略图。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	log, err := app.NewLogger(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting mailgallery server",
		zap.String("version", version),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	metrics := monitoring.NewMetrics()

	store, err := app.OpenStore(cfg.Database, metrics, log)
	if err != nil {
		log.Fatal("failed to initialize storage", zap.Error(err))
	}
	healthChecker := health.NewHealthChecker(store, log)

	rdb, err := app.OpenRedis(cfg.Redis, log)
	if err != nil {
		log.Fatal("failed to initialize redis", zap.Error(err))
	}
	if rdb != nil {
		healthChecker.AddReadiness("redis", rdb)
	}

	classifier := app.NewClassifier(cfg.Geo, rdb, metrics, log)

	var apiOpts []option.ClientOption
	if cfg.Google.APIEndpoint != "" {
		apiOpts = append(apiOpts, option.WithEndpoint(cfg.Google.APIEndpoint))
	}

	oauth := google.NewOAuth(cfg.Google)
	authService := auth.NewService(store, store)
	stateManager := jwtpkg.NewStateManager(cfg.State.Secret, "mailgallery", cfg.State.TTL)

	importService := service.NewImportService(service.ImportServiceDeps{
		Users:         store,
		Tokens:        store,
		Emails:        store,
		Refresher:     oauth,
		Clients:       service.GmailClientFactory(apiOpts...),
		Classifier:    classifier,
		Observer:      metrics,
		PageSize:      cfg.Import.PageSize,
		MaxPerRequest: cfg.Import.MaxPerRequest,
		Logger:        log.Named("import"),
	})
	templateService := service.NewTemplateService(store, store, log.Named("templates"))

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:          cfg,
		AuthService:     authService,
		ImportService:   importService,
		TemplateService: templateService,
		OAuth:           oauth,
		StateManager:    stateManager,
		Profile:         httptransport.GmailProfile(apiOpts...),
		Tokens:          store,
		Health:          healthChecker,
		Metrics:         metrics,
		Logger:          log,
	})

	httpAddr := cfg.Server.Addr()
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// 导入请求受 RequestTimeout 约束，写超时需要比它长
		WriteTimeout: cfg.Server.RequestTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 定时生成缩略图 goroutine
	if cfg.Thumbnail.Interval > 0 {
		thumbnails := service.NewThumbnailService(
			store,
			service.ChromeOpener(thumbnail.OptionsFromConfig(cfg.Thumbnail), log.Named("chrome")),
			service.ThumbnailOptions{
				Width:   cfg.Thumbnail.ThumbWidth,
				Height:  cfg.Thumbnail.ThumbHeight,
				Workers: cfg.Thumbnail.Workers,
			},
			metrics,
			log.Named("thumbnails"),
		)

		group.Go(func() error {
			ticker := time.NewTicker(cfg.Thumbnail.Interval)
			defer ticker.Stop()

			log.Info("starting thumbnail task", zap.Duration("interval", cfg.Thumbnail.Interval))

			for {
				select {
				case <-groupCtx.Done():
					log.Info("thumbnail task stopped")
					return nil
				case <-ticker.C:
					report, err := thumbnails.GenerateBatch(groupCtx, cfg.Thumbnail.BatchSize)
					if err != nil {
						log.Error("thumbnail batch failed", zap.Error(err))
						continue
					}
					if report.Processed > 0 {
						log.Info("thumbnail batch finished",
							zap.Int("generated", report.Generated),
							zap.Int("failed", report.Failed),
						)
					}
				}
			}
		})
	}

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}
		if rdb != nil {
			if err := rdb.Close(); err != nil {
				log.Warn("redis close warning", zap.Error(err))
			}
		}
		if err := store.Close(); err != nil {
			log.Warn("storage close warning", zap.Error(err))
		}

		log.Info("servers stopped")
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

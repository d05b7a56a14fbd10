package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailgallery/backend/internal/auth"
	jwtpkg "mailgallery/backend/internal/auth/jwt"
	"mailgallery/backend/internal/config"
	"mailgallery/backend/internal/health"
	"mailgallery/backend/internal/middleware"
	"mailgallery/backend/internal/monitoring"
	"mailgallery/backend/internal/service"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config          *config.Config
	AuthService     *auth.Service
	ImportService   *service.ImportService
	TemplateService *service.TemplateService
	OAuth           OAuthProvider
	StateManager    *jwtpkg.StateManager
	Profile         ProfileFetcher
	Tokens          TokenStore
	Health          *health.HealthChecker
	Metrics         *monitoring.Metrics
	Logger          *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	router := gin.New()

	monitor := middleware.NewMonitoringMiddleware(deps.Metrics, deps.Logger)
	router.Use(monitor.PanicRecovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(monitor.HTTPMetrics())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))
	router.Use(middleware.Timeout(deps.Config.Server.RequestTimeout))

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowAllOrigins = true
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	authHandler := NewAuthHandler(deps)
	importHandler := NewImportHandler(deps.ImportService, deps.Logger)
	templateHandler := NewTemplateHandler(deps.TemplateService, deps.Logger)

	// 健康检查与指标
	router.GET("/health", func(c *gin.Context) {
		results := deps.Health.CheckHealth()
		status := http.StatusOK
		if !deps.Health.Healthy(results) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, results)
	})
	router.GET("/health/live", gin.WrapF(deps.Health.LiveEndpoint))
	router.GET("/health/ready", gin.WrapF(deps.Health.ReadyEndpoint))
	router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))

	// ========== Auth Routes ==========
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.GET("/google", authHandler.GoogleRedirect)
		authRoutes.GET("/callback", authHandler.Callback)
	}
	router.GET("/user/email", authHandler.CurrentUser)

	// ========== Import Routes ==========
	router.GET("/messages/import", importHandler.Import)

	// ========== Template Routes ==========
	templateRoutes := router.Group("/templates")
	{
		templateRoutes.GET("", templateHandler.List)
		templateRoutes.GET("/filters", templateHandler.Filters)
		templateRoutes.GET("/:id", templateHandler.Get)
	}

	return router
}

package app

import (
	"fmt"

	"go.uber.org/zap"

	"mailgallery/backend/internal/cache"
	"mailgallery/backend/internal/classify"
	"mailgallery/backend/internal/config"
	"mailgallery/backend/internal/logger"
	"mailgallery/backend/internal/monitoring"
	"mailgallery/backend/internal/storage"
	"mailgallery/backend/internal/storage/memory"
	"mailgallery/backend/internal/storage/redis"
	sqlstore "mailgallery/backend/internal/storage/sql"
)

// NewLogger 按配置创建日志记录器
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	return logger.NewLogger(logger.Config{
		Level:       cfg.Level,
		Development: cfg.Development,
		LogFile:     cfg.File,
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
}

// OpenStore 初始化存储层
//
// 配置了数据库类型和 DSN 时使用 SQL 存储（会执行迁移），否则使用内存存储。
// metrics 不为 nil 时注册连接池指标。
func OpenStore(cfg config.DatabaseConfig, metrics *monitoring.Metrics, log *zap.Logger) (storage.Store, error) {
	if cfg.Type == "" || cfg.DSN == "" {
		log.Info("using memory storage (development mode)")
		return memory.NewStore(), nil
	}

	log.Info("initializing database storage", zap.String("database_type", cfg.Type))
	store, err := sqlstore.NewStore(cfg.Type, cfg.DSN, sqlstore.Options{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database storage: %w", err)
	}
	if metrics != nil {
		metrics.RegisterDB(store.DB())
	}

	log.Info("database storage initialized successfully", zap.String("database_type", cfg.Type))
	return store, nil
}

// OpenRedis 配置了地址时连接 Redis，未配置返回 nil
func OpenRedis(cfg config.RedisConfig, log *zap.Logger) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, nil
	}
	return redis.New(cfg, log)
}

// NewClassifier 创建分类器，国家缓存按 geo.cache 选择 Redis 或进程内缓存
func NewClassifier(cfg config.GeoConfig, rdb *redis.Client, metrics *monitoring.Metrics, log *zap.Logger) *classify.Classifier {
	var countries classify.CountryCache
	if cfg.Cache == "redis" && rdb != nil {
		countries = redis.NewCountryCache(rdb, 0)
	} else {
		countries = cache.NewCountryCache()
	}

	locator := classify.NewIPInfoLocator(cfg.Endpoint, cfg.Token, cfg.RatePerSecond, cfg.Timeout)

	var observer classify.Observer
	if metrics != nil {
		observer = metrics
	}
	return classify.NewClassifier(locator, countries, observer, log)
}

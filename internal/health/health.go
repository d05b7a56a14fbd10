package health

import (
	"fmt"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"
)

// Checker 可被探测的依赖
type Checker interface {
	Health() error
}

// HealthChecker 健康检查器
type HealthChecker struct {
	health healthcheck.Handler
	checks map[string]Checker
	logger *zap.Logger
}

// NewHealthChecker 创建健康检查器
//
// 存储作为存活检查，其余依赖（Redis 等）作为就绪检查。
func NewHealthChecker(store Checker, logger *zap.Logger) *HealthChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := &HealthChecker{
		health: healthcheck.NewHandler(),
		checks: map[string]Checker{"database": store},
		logger: logger,
	}
	hc.health.AddLivenessCheck("database", hc.wrap("database", store))
	return hc
}

// AddReadiness 添加就绪检查
func (hc *HealthChecker) AddReadiness(name string, dep Checker) {
	hc.checks[name] = dep
	hc.health.AddReadinessCheck(name, hc.wrap(name, dep))
}

func (hc *HealthChecker) wrap(name string, dep Checker) healthcheck.Check {
	return func() error {
		if err := dep.Health(); err != nil {
			hc.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			return err
		}
		return nil
	}
}

// LiveEndpoint 存活检查
func (hc *HealthChecker) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.LiveEndpoint(w, r)
}

// ReadyEndpoint 就绪检查
func (hc *HealthChecker) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.ReadyEndpoint(w, r)
}

// CheckHealth 执行全部检查并汇总结果
func (hc *HealthChecker) CheckHealth() map[string]string {
	results := make(map[string]string, len(hc.checks)+1)
	for name, dep := range hc.checks {
		if err := dep.Health(); err != nil {
			results[name] = fmt.Sprintf("ERROR: %v", err)
		} else {
			results[name] = "OK"
		}
	}
	results["timestamp"] = time.Now().Format(time.RFC3339)
	return results
}

// Healthy 所有检查均通过
func (hc *HealthChecker) Healthy(results map[string]string) bool {
	for name, v := range results {
		if name != "timestamp" && v != "OK" {
			return false
		}
	}
	return true
}

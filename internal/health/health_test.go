package health

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeDep struct{ err error }

func (f fakeDep) Health() error { return f.err }

func TestHealthChecker(t *testing.T) {
	t.Run("全部正常", func(t *testing.T) {
		hc := NewHealthChecker(fakeDep{}, zap.NewNop())
		hc.AddReadiness("redis", fakeDep{})

		results := hc.CheckHealth()
		assert.Equal(t, "OK", results["database"])
		assert.Equal(t, "OK", results["redis"])
		assert.True(t, hc.Healthy(results))

		rec := httptest.NewRecorder()
		hc.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("就绪检查失败不影响存活", func(t *testing.T) {
		hc := NewHealthChecker(fakeDep{}, nil)
		hc.AddReadiness("redis", fakeDep{err: errors.New("down")})

		rec := httptest.NewRecorder()
		hc.LiveEndpoint(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		hc.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		results := hc.CheckHealth()
		assert.Contains(t, results["redis"], "ERROR")
		assert.False(t, hc.Healthy(results))
	})

	t.Run("数据库失败时存活检查失败", func(t *testing.T) {
		hc := NewHealthChecker(fakeDep{err: errors.New("closed")}, nil)

		rec := httptest.NewRecorder()
		hc.LiveEndpoint(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

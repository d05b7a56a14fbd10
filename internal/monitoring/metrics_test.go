package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	t.Run("多个实例互不冲突", func(t *testing.T) {
		assert.NotPanics(t, func() {
			NewMetrics()
			NewMetrics()
		})
	})

	t.Run("导入指标", func(t *testing.T) {
		m := NewMetrics()
		m.RecordImport(3, 2, time.Second, nil)
		m.RecordImport(1, 0, time.Second, errors.New("boom"))

		assert.Equal(t, 4.0, testutil.ToFloat64(m.EmailsImported))
		assert.Equal(t, 2.0, testutil.ToFloat64(m.DuplicatesSkipped))
	})

	t.Run("归属地指标", func(t *testing.T) {
		m := NewMetrics()
		m.GeoLookup("Germany")
		m.GeoLookup("Unknown")
		m.GeoCacheHit()

		assert.Equal(t, 1.0, testutil.ToFloat64(m.GeoLookups.WithLabelValues("resolved")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.GeoLookups.WithLabelValues("unknown")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.GeoCacheHits))
	})

	t.Run("缩略图指标", func(t *testing.T) {
		m := NewMetrics()
		m.RecordThumbnail(time.Second, nil)
		m.RecordThumbnail(time.Second, errors.New("timeout"))

		assert.Equal(t, 1.0, testutil.ToFloat64(m.ThumbnailsGenerated))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.ThumbnailsFailed))
	})

	t.Run("暴露指标", func(t *testing.T) {
		m := NewMetrics()
		m.RecordTokenRefresh(true)
		m.RecordHTTPRequest("GET", "/templates", "200", time.Millisecond, 10)

		rec := httptest.NewRecorder()
		m.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "mailgallery_token_refreshes_total")
		assert.Contains(t, body, "mailgallery_http_requests_total")
		assert.Contains(t, body, "mailgallery_uptime_seconds")
	})
}

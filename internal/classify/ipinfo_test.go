package classify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPInfoLocator(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.URL.Query().Get("token")
		switch r.URL.Path {
		case "/lite/8.8.8.8":
			_, _ = w.Write([]byte(`{"ip":"8.8.8.8","country":"United States","country_code":"US"}`))
		case "/lite/9.9.9.9":
			_, _ = w.Write([]byte(`<html>rate limited</html>`))
		case "/lite/5.5.5.5":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	locator := NewIPInfoLocator(srv.URL+"/lite", "tok-1", 0, time.Second)
	ctx := context.Background()

	t.Run("返回国家", func(t *testing.T) {
		country, err := locator.Country(ctx, "8.8.8.8")
		require.NoError(t, err)
		assert.Equal(t, "United States", country)
		assert.Equal(t, "tok-1", gotToken)
	})

	t.Run("404", func(t *testing.T) {
		_, err := locator.Country(ctx, "4.4.4.4")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("非 JSON 响应", func(t *testing.T) {
		_, err := locator.Country(ctx, "9.9.9.9")
		assert.Error(t, err)
	})

	t.Run("服务端错误", func(t *testing.T) {
		_, err := locator.Country(ctx, "5.5.5.5")
		assert.Error(t, err)
	})

	t.Run("限速器遵守取消", func(t *testing.T) {
		slow := NewIPInfoLocator(srv.URL+"/lite", "", 0.001, time.Second)
		_, _ = slow.Country(ctx, "8.8.8.8") // 用掉唯一的令牌

		cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err := slow.Country(cctx, "8.8.8.8")
		assert.Error(t, err)
	})
}

package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailgallery/backend/internal/storage/memory"
)

func TestParseBrandLine(t *testing.T) {
	t.Run("完整的一行", func(t *testing.T) {
		brand, ok := ParseBrandLine("Nike\twww.Nike.com\tUnited States")
		require.True(t, ok)
		assert.Equal(t, "Nike", brand.Name)
		assert.Equal(t, "www.nike.com", brand.Domain)
		assert.Equal(t, "nike", brand.Slug)
		assert.Equal(t, "United States", brand.Country)
	})

	t.Run("国家可以省略", func(t *testing.T) {
		brand, ok := ParseBrandLine("Zara\tzara.com")
		require.True(t, ok)
		assert.Empty(t, brand.Country)
	})

	t.Run("缺少域名的行被跳过", func(t *testing.T) {
		_, ok := ParseBrandLine("Nike")
		assert.False(t, ok)
		_, ok = ParseBrandLine("   ")
		assert.False(t, ok)
	})
}

func TestBrandService_Import(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/nike.com/favicon.ico" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("\x89PNG\r\n\x1a\nicon"))
	}))
	defer srv.Close()

	store := memory.NewStore()
	svc := NewBrandService(store, srv.Client(), nil)
	svc.baseURL = func(d string) string { return srv.URL + "/" + d }

	input := strings.Join([]string{
		"Nike\tnike.com\tUnited States",
		"",
		"broken line",
		"Missing\tmissing.test\t",
	}, "\n")

	report, err := svc.Import(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Saved)
	assert.Equal(t, 1, report.WithoutIcon)
	assert.Equal(t, 0, report.Failed)

	images, err := store.BrandImages(context.Background(), []string{"nike", "missing"})
	require.NoError(t, err)
	assert.Contains(t, images, "nike")
	assert.NotContains(t, images, "missing")
}

package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"mailgallery/backend/internal/domain"
	"mailgallery/backend/internal/storage"
)

const (
	faviconTimeout = 5 * time.Second
	// maxFaviconSize 超过此大小的图标视为异常
	maxFaviconSize = 1 << 20
)

// BrandImportReport 品牌导入结果
type BrandImportReport struct {
	Saved       int
	WithoutIcon int
	Failed      int
}

// BrandService 导入品牌列表并抓取网站图标
type BrandService struct {
	brands  storage.BrandRepository
	client  *http.Client
	baseURL func(domain string) string
	logger  *zap.Logger
}

// NewBrandService 创建品牌服务，client 为 nil 时使用 5 秒超时的默认客户端
func NewBrandService(brands storage.BrandRepository, client *http.Client, logger *zap.Logger) *BrandService {
	if client == nil {
		client = &http.Client{Timeout: faviconTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BrandService{
		brands:  brands,
		client:  client,
		baseURL: func(d string) string { return "https://" + d },
		logger:  logger,
	}
}

// ParseBrandLine 解析一行 "名称\t域名\t国家"，名称或域名为空时返回 false
func ParseBrandLine(line string) (domain.Brand, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return domain.Brand{}, false
	}
	fields := strings.Split(line, "\t")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if len(fields) < 2 || fields[0] == "" || fields[1] == "" {
		return domain.Brand{}, false
	}

	brand := domain.Brand{
		Name:   fields[0],
		Domain: strings.ToLower(fields[1]),
	}
	brand.Slug = domain.BrandSlug(brand.Domain)
	if len(fields) > 2 {
		brand.Country = fields[2]
	}
	return brand, true
}

// Import 逐行导入品牌，图标抓取失败时仍保存品牌，单行写入失败记录后继续
func (s *BrandService) Import(ctx context.Context, r io.Reader) (*BrandImportReport, error) {
	report := &BrandImportReport{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		brand, ok := ParseBrandLine(scanner.Text())
		if !ok {
			continue
		}

		s.logger.Info("processing brand", zap.String("name", brand.Name), zap.String("domain", brand.Domain))

		icon, err := s.FetchFavicon(ctx, brand.Domain)
		if err != nil {
			s.logger.Warn("failed to fetch favicon", zap.String("domain", brand.Domain), zap.Error(err))
			report.WithoutIcon++
		} else {
			brand.ImageURL = icon
		}

		if err := s.brands.SaveBrand(ctx, &brand); err != nil {
			s.logger.Error("failed to save brand", zap.String("name", brand.Name), zap.Error(err))
			report.Failed++
			continue
		}
		report.Saved++
	}
	if err := scanner.Err(); err != nil {
		return report, fmt.Errorf("read brands: %w", err)
	}
	return report, nil
}

// FetchFavicon 下载 https://{domain}/favicon.ico
func (s *BrandService) FetchFavicon(ctx context.Context, domainName string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL(domainName)+"/favicon.ico", nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("favicon request returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFaviconSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxFaviconSize {
		return nil, fmt.Errorf("favicon larger than %d bytes", maxFaviconSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty favicon")
	}
	return data, nil
}

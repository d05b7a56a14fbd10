package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"mailgallery/backend/internal/domain"
	"mailgallery/backend/internal/storage"
)

// TemplateService 画廊只读查询
type TemplateService struct {
	emails storage.EmailRepository
	brands storage.BrandRepository
	logger *zap.Logger
}

// NewTemplateService 创建模板查询服务
func NewTemplateService(emails storage.EmailRepository, brands storage.BrandRepository, logger *zap.Logger) *TemplateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateService{emails: emails, brands: brands, logger: logger}
}

// List 分页查询模板，并附上品牌图标
func (s *TemplateService) List(ctx context.Context, query domain.TemplateQuery) (*domain.TemplateList, error) {
	query = query.Normalize()

	templates, total, err := s.emails.ListTemplates(ctx, query)
	if err != nil {
		return nil, err
	}
	if templates == nil {
		templates = []domain.TemplateSummary{}
	}

	s.attachBrandImages(ctx, templates)

	return &domain.TemplateList{
		Templates:  templates,
		Page:       query.Page,
		Total:      total,
		TotalPages: domain.TotalPages(total, query.Limit),
	}, nil
}

// attachBrandImages 查询失败只记录日志，列表照常返回
func (s *TemplateService) attachBrandImages(ctx context.Context, templates []domain.TemplateSummary) {
	if s.brands == nil || len(templates) == 0 {
		return
	}

	seen := make(map[string]struct{}, len(templates))
	slugs := make([]string, 0, len(templates))
	for _, t := range templates {
		slug := strings.ToLower(t.Brand)
		if slug == "" || t.Brand == domain.UnknownValue {
			continue
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		slugs = append(slugs, slug)
	}
	if len(slugs) == 0 {
		return
	}

	images, err := s.brands.BrandImages(ctx, slugs)
	if err != nil {
		s.logger.Warn("failed to load brand images", zap.Error(err))
		return
	}
	for i := range templates {
		if url, ok := images[strings.ToLower(templates[i].Brand)]; ok {
			templates[i].BrandImage = &url
		}
	}
}

// Filters 返回各筛选列的去重取值
func (s *TemplateService) Filters(ctx context.Context) (*domain.FilterOptions, error) {
	return s.emails.ListFilterOptions(ctx)
}

// Get 返回完整邮件
func (s *TemplateService) Get(ctx context.Context, id int64) (*domain.Email, error) {
	return s.emails.GetEmail(ctx, id)
}

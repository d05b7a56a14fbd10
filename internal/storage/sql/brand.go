package sql

import (
	"context"
	"strings"

	"mailgallery/backend/internal/domain"
)

// SaveBrand 按域名插入或更新品牌
func (s *Store) SaveBrand(ctx context.Context, brand *domain.Brand) error {
	brand.Domain = strings.ToLower(strings.TrimSpace(brand.Domain))
	if brand.Slug == "" {
		brand.Slug = domain.BrandSlug(brand.Domain)
	}

	var query string
	if s.isPostgres() {
		query = `
			INSERT INTO brands (name, domain, slug, image_url, country, description)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (domain) DO UPDATE SET
				name = EXCLUDED.name,
				slug = EXCLUDED.slug,
				image_url = EXCLUDED.image_url,
				country = EXCLUDED.country,
				description = EXCLUDED.description
		`
	} else {
		query = `
			INSERT INTO brands (name, domain, slug, image_url, country, description)
			VALUES (?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				name = VALUES(name),
				slug = VALUES(slug),
				image_url = VALUES(image_url),
				country = VALUES(country),
				description = VALUES(description)
		`
	}

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		brand.Name,
		brand.Domain,
		brand.Slug,
		brand.ImageURL,
		brand.Country,
		brand.Description,
	)
	return err
}

// BrandImages 按 slug 批量查询品牌图片，返回 slug -> data URL
func (s *Store) BrandImages(ctx context.Context, slugs []string) (map[string]string, error) {
	images := make(map[string]string)
	if len(slugs) == 0 {
		return images, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(slugs)), ", ")
	args := make([]any, len(slugs))
	for i, slug := range slugs {
		args[i] = slug
	}

	query := `SELECT slug, image_url FROM brands WHERE image_url IS NOT NULL AND slug IN (` + placeholders + `) ORDER BY id`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var brand domain.Brand
		if err := rows.Scan(&brand.Slug, &brand.ImageURL); err != nil {
			return nil, err
		}
		if _, done := images[brand.Slug]; done {
			continue
		}
		if url := brand.ImageDataURL(); url != nil {
			images[brand.Slug] = *url
		}
	}
	return images, rows.Err()
}

package domain

import (
	"strconv"
	"time"
)

const (
	// DefaultTemplatePageSize 模板列表默认每页数量
	DefaultTemplatePageSize = 12
	// MaxTemplatePageSize 模板列表每页数量上限
	MaxTemplatePageSize = 50
)

// TemplateQuery 模板列表的分页与筛选条件
type TemplateQuery struct {
	Page     int
	Limit    int
	Search   string // 在 subject 和 snippet 中模糊匹配
	Brand    string
	Language string
	Country  string
}

// Normalize 修正分页参数：page 至少为 1，limit 缺省 12、上限 50
func (q TemplateQuery) Normalize() TemplateQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultTemplatePageSize
	}
	if q.Limit > MaxTemplatePageSize {
		q.Limit = MaxTemplatePageSize
	}
	return q
}

// Offset 返回当前页的偏移量
func (q TemplateQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// ParseIntOr 解析查询参数，无法解析时返回 fallback
func ParseIntOr(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// TemplateSummary 画廊列表中的一行
type TemplateSummary struct {
	ID            int64     `json:"id"`
	Subject       string    `json:"subject"`
	SenderName    string    `json:"sender_name"`
	SenderEmail   string    `json:"sender_email"`
	Snippet       string    `json:"snippet"`
	Brand         string    `json:"brand"`
	Language      string    `json:"language"`
	Country       string    `json:"country"`
	SentAt        time.Time `json:"sent_at"`
	ThumbnailPath *string   `json:"thumbnail_path"`
	BrandImage    *string   `json:"brand_image"`
}

// TemplateList 模板分页结果
type TemplateList struct {
	Templates  []TemplateSummary `json:"templates"`
	Page       int               `json:"page"`
	Total      int               `json:"total"`
	TotalPages int               `json:"totalPages"`
}

// TotalPages 按 ceil(total/limit) 计算总页数
func TotalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// FilterOptions 每个可筛选列的去重取值
type FilterOptions struct {
	Brands    []string `json:"brands"`
	Languages []string `json:"languages"`
	Countries []string `json:"countries"`
}

package storage

import (
	"context"
	"errors"

	"mailgallery/backend/internal/domain"
)

var (
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrTokenNotFound 没有保存 Gmail 令牌
	ErrTokenNotFound = errors.New("gmail token not found")
	// ErrEmailNotFound 邮件不存在
	ErrEmailNotFound = errors.New("email not found")
	// ErrUserExists 邮箱已被注册
	ErrUserExists = errors.New("user already exists")
)

// UserRepository 定义用户数据存取操作。
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	IncrementImportedCount(ctx context.Context, userID int64, n int) error
	// LatestTokenUserEmail 返回令牌到期时间最晚的已授权用户邮箱
	LatestTokenUserEmail(ctx context.Context) (string, error)
}

// TokenRepository 定义 Gmail 令牌存取操作。
type TokenRepository interface {
	GetToken(ctx context.Context, userEmail string) (*domain.GmailToken, error)
	SaveToken(ctx context.Context, token *domain.GmailToken) error
}

// EmailRepository 定义导入邮件的存取操作。
type EmailRepository interface {
	EmailExists(ctx context.Context, userID int64, messageID string) (bool, error)
	// InsertEmail 插入邮件，(user_id, message_id) 冲突时返回 false 且不报错
	InsertEmail(ctx context.Context, email *domain.Email) (bool, error)
	GetEmail(ctx context.Context, id int64) (*domain.Email, error)
	ListTemplates(ctx context.Context, query domain.TemplateQuery) ([]domain.TemplateSummary, int, error)
	ListFilterOptions(ctx context.Context) (*domain.FilterOptions, error)
	ListWithoutThumbnail(ctx context.Context, limit int) ([]domain.Email, error)
	SaveThumbnail(ctx context.Context, id int64, thumbnail string) error
}

// BrandRepository 定义品牌数据存取操作。
type BrandRepository interface {
	SaveBrand(ctx context.Context, brand *domain.Brand) error
	// BrandImages 按 slug 返回品牌图片 data URL
	BrandImages(ctx context.Context, slugs []string) (map[string]string, error)
}

// Store 聚合所有仓储接口。
type Store interface {
	UserRepository
	TokenRepository
	EmailRepository
	BrandRepository
	Close() error
	Health() error
}

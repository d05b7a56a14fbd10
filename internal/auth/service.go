package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"mailgallery/backend/internal/domain"
	"mailgallery/backend/internal/storage"
)

var (
	// ErrMissingCredentials 缺少邮箱或密码
	ErrMissingCredentials = errors.New("missing email or password")
	// ErrInvalidCredentials 凭证无效
	ErrInvalidCredentials = errors.New("incorrect email or password")
	// ErrEmailExists 邮箱已存在
	ErrEmailExists = errors.New("email already exists")
)

// UserRepository 用户存储接口
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// TokenRepository 只用于判断用户是否已授权 Gmail
type TokenRepository interface {
	GetToken(ctx context.Context, userEmail string) (*domain.GmailToken, error)
}

// Service 认证服务
type Service struct {
	users  UserRepository
	tokens TokenRepository
}

// NewService 创建认证服务
func NewService(users UserRepository, tokens TokenRepository) *Service {
	return &Service{users: users, tokens: tokens}
}

// RegisterInput 注册输入
type RegisterInput struct {
	Email    string
	Password string
}

// Register 创建用户，密码以 bcrypt 哈希保存
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email := domain.NormalizeEmail(input.Email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{Email: email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// LoginInput 登录输入
type LoginInput struct {
	Email    string
	Password string
}

// Login 校验邮箱和密码，并返回该用户是否已有 Gmail 令牌
//
// 参数:
//   - input: 邮箱和明文密码
//
// 返回值:
//   - *domain.LoginResult: 登录邮箱与令牌状态
//   - error: ErrMissingCredentials、ErrInvalidCredentials 或存储错误
func (s *Service) Login(ctx context.Context, input LoginInput) (*domain.LoginResult, error) {
	if input.Email == "" || input.Password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !CheckPassword(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	tokenExists := true
	if _, err := s.tokens.GetToken(ctx, user.Email); err != nil {
		if !errors.Is(err, storage.ErrTokenNotFound) {
			return nil, fmt.Errorf("get token: %w", err)
		}
		tokenExists = false
	}

	return &domain.LoginResult{Email: input.Email, TokenExists: tokenExists}, nil
}

// HashPassword 使用 bcrypt 哈希密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword 比对明文密码与哈希
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

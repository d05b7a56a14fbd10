package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"mailgallery/backend/internal/domain"
	"mailgallery/backend/internal/storage"
)

// ========== User Repository ==========

// CreateUser 创建新用户
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	user.Email = domain.NormalizeEmail(user.Email)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	var exists int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM users WHERE email = ?`), user.Email).Scan(&exists)
	switch {
	case err == nil:
		return storage.ErrUserExists
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check user: %w", err)
	}

	query := `
		INSERT INTO users (email, password, emails_imported_count, created_at)
		VALUES (?, ?, ?, ?)
	`
	args := []any{user.Email, user.PasswordHash, user.EmailsImportedCount, user.CreatedAt}

	if s.isPostgres() {
		return s.db.QueryRowContext(ctx, s.rebind(query+" RETURNING id"), args...).Scan(&user.ID)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	user.ID, err = result.LastInsertId()
	return err
}

// GetUserByEmail 根据邮箱获取用户
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, email, password, emails_imported_count, created_at
		FROM users
		WHERE email = ?
	`
	var user domain.User
	err := s.db.QueryRowContext(ctx, s.rebind(query), domain.NormalizeEmail(email)).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.EmailsImportedCount,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// IncrementImportedCount 累加用户已导入数量
func (s *Store) IncrementImportedCount(ctx context.Context, userID int64, n int) error {
	query := `UPDATE users SET emails_imported_count = emails_imported_count + ? WHERE id = ?`
	_, err := s.db.ExecContext(ctx, s.rebind(query), n, userID)
	return err
}

// LatestTokenUserEmail 返回令牌到期时间最晚的用户邮箱
func (s *Store) LatestTokenUserEmail(ctx context.Context) (string, error) {
	query := strings.TrimSpace(`
		SELECT users.email FROM users
		JOIN gmail_tokens ON users.email = gmail_tokens.user_email
		ORDER BY gmail_tokens.expiry DESC
		LIMIT 1
	`)
	var email string
	err := s.db.QueryRowContext(ctx, query).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrUserNotFound
	}
	if err != nil {
		return "", err
	}
	return email, nil
}

// ========== Token Repository ==========

// GetToken 获取用户的 Gmail 令牌
func (s *Store) GetToken(ctx context.Context, userEmail string) (*domain.GmailToken, error) {
	query := `
		SELECT user_email, access_token, refresh_token, expiry, updated_at
		FROM gmail_tokens
		WHERE user_email = ?
	`
	var (
		token        domain.GmailToken
		refreshToken sql.NullString
		expiry       sql.NullTime
		updatedAt    sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, s.rebind(query), domain.NormalizeEmail(userEmail)).Scan(
		&token.UserEmail,
		&token.AccessToken,
		&refreshToken,
		&expiry,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}

	token.RefreshToken = refreshToken.String
	if expiry.Valid {
		token.Expiry = expiry.Time
	}
	if updatedAt.Valid {
		token.UpdatedAt = updatedAt.Time
	}
	return &token, nil
}

// SaveToken 插入或覆盖令牌；新的 refresh token 为空时保留旧值
func (s *Store) SaveToken(ctx context.Context, token *domain.GmailToken) error {
	token.UserEmail = domain.NormalizeEmail(token.UserEmail)
	token.UpdatedAt = time.Now().UTC()

	var query string
	if s.isPostgres() {
		query = `
			INSERT INTO gmail_tokens (user_email, access_token, refresh_token, expiry, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (user_email) DO UPDATE SET
				access_token = EXCLUDED.access_token,
				refresh_token = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), gmail_tokens.refresh_token),
				expiry = EXCLUDED.expiry,
				updated_at = EXCLUDED.updated_at
		`
	} else {
		query = `
			INSERT INTO gmail_tokens (user_email, access_token, refresh_token, expiry, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				access_token = VALUES(access_token),
				refresh_token = COALESCE(NULLIF(VALUES(refresh_token), ''), refresh_token),
				expiry = VALUES(expiry),
				updated_at = VALUES(updated_at)
		`
	}

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		token.UserEmail,
		token.AccessToken,
		token.RefreshToken,
		token.Expiry.UTC(),
		token.UpdatedAt,
	)
	return err
}

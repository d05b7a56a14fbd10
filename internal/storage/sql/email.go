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

// ========== Email Repository ==========

// EmailExists 检查 (user_id, message_id) 是否已导入
func (s *Store) EmailExists(ctx context.Context, userID int64, messageID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT 1 FROM emails WHERE message_id = ? AND user_id = ?`),
		messageID, userID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertEmail 插入邮件，唯一索引冲突时不报错并返回 false
func (s *Store) InsertEmail(ctx context.Context, email *domain.Email) (bool, error) {
	if email.CreatedAt.IsZero() {
		email.CreatedAt = time.Now().UTC()
	}

	columns := `user_id, message_id, thread_id, subject, sender_name, sender_email, recipient_email,
		sent_at, body_html, body_text, snippet, brand, language, country, created_at`
	values := `?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?`
	args := []any{
		email.UserID,
		email.MessageID,
		email.ThreadID,
		email.Subject,
		email.SenderName,
		email.SenderEmail,
		email.RecipientEmail,
		email.SentAt.UTC(),
		email.BodyHTML,
		email.BodyText,
		email.Snippet,
		email.Brand,
		email.Language,
		email.Country,
		email.CreatedAt,
	}

	if s.isPostgres() {
		query := fmt.Sprintf(`INSERT INTO emails (%s) VALUES (%s)
			ON CONFLICT (user_id, message_id) DO NOTHING
			RETURNING id`, columns, values)
		err := s.db.QueryRowContext(ctx, s.rebind(query), args...).Scan(&email.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	}

	query := fmt.Sprintf(`INSERT IGNORE INTO emails (%s) VALUES (%s)`, columns, values)
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}
	email.ID, err = result.LastInsertId()
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetEmail 根据 ID 获取完整邮件
func (s *Store) GetEmail(ctx context.Context, id int64) (*domain.Email, error) {
	query := `
		SELECT id, user_id, message_id, thread_id, subject, sender_name, sender_email, recipient_email,
		       sent_at, body_html, body_text, snippet, brand, language, country, thumbnail_path, created_at
		FROM emails
		WHERE id = ?
	`
	var (
		email     domain.Email
		threadID  sql.NullString
		thumbnail sql.NullString
	)
	err := s.db.QueryRowContext(ctx, s.rebind(query), id).Scan(
		&email.ID,
		&email.UserID,
		&email.MessageID,
		&threadID,
		&email.Subject,
		&email.SenderName,
		&email.SenderEmail,
		&email.RecipientEmail,
		&email.SentAt,
		&email.BodyHTML,
		&email.BodyText,
		&email.Snippet,
		&email.Brand,
		&email.Language,
		&email.Country,
		&thumbnail,
		&email.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrEmailNotFound
	}
	if err != nil {
		return nil, err
	}

	email.ThreadID = threadID.String
	if thumbnail.Valid {
		email.ThumbnailPath = &thumbnail.String
	}
	return &email, nil
}

// templateWhere 根据筛选条件构建 WHERE 子句
func (s *Store) templateWhere(query domain.TemplateQuery) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	if query.Search != "" {
		like := s.likeOperator()
		conditions = append(conditions, fmt.Sprintf("(subject %s ? OR snippet %s ?)", like, like))
		pattern := "%" + query.Search + "%"
		args = append(args, pattern, pattern)
	}
	if query.Brand != "" {
		conditions = append(conditions, "brand = ?")
		args = append(args, query.Brand)
	}
	if query.Language != "" {
		conditions = append(conditions, "language = ?")
		args = append(args, query.Language)
	}
	if query.Country != "" {
		conditions = append(conditions, "country = ?")
		args = append(args, query.Country)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// ListTemplates 分页查询模板，按发送时间倒序
func (s *Store) ListTemplates(ctx context.Context, query domain.TemplateQuery) ([]domain.TemplateSummary, int, error) {
	query = query.Normalize()
	where, args := s.templateWhere(query)

	var total int
	countQuery := "SELECT COUNT(*) FROM emails" + where
	if err := s.db.QueryRowContext(ctx, s.rebind(countQuery), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count templates: %w", err)
	}

	listQuery := `SELECT id, subject, sender_name, sender_email, snippet, brand, language, country, sent_at, thumbnail_path
		FROM emails` + where + ` ORDER BY sent_at DESC, id DESC LIMIT ? OFFSET ?`
	listArgs := append(append([]any{}, args...), query.Limit, query.Offset())

	rows, err := s.db.QueryContext(ctx, s.rebind(listQuery), listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	templates := make([]domain.TemplateSummary, 0, query.Limit)
	for rows.Next() {
		var (
			t         domain.TemplateSummary
			thumbnail sql.NullString
		)
		if err := rows.Scan(
			&t.ID,
			&t.Subject,
			&t.SenderName,
			&t.SenderEmail,
			&t.Snippet,
			&t.Brand,
			&t.Language,
			&t.Country,
			&t.SentAt,
			&thumbnail,
		); err != nil {
			return nil, 0, err
		}
		if thumbnail.Valid {
			t.ThumbnailPath = &thumbnail.String
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return templates, total, nil
}

// ListFilterOptions 返回 brand、language、country 的去重取值
func (s *Store) ListFilterOptions(ctx context.Context) (*domain.FilterOptions, error) {
	brands, err := s.distinct(ctx, "brand")
	if err != nil {
		return nil, err
	}
	languages, err := s.distinct(ctx, "language")
	if err != nil {
		return nil, err
	}
	countries, err := s.distinct(ctx, "country")
	if err != nil {
		return nil, err
	}
	return &domain.FilterOptions{Brands: brands, Languages: languages, Countries: countries}, nil
}

// distinct column 只接受内部常量，不能来自请求参数
func (s *Store) distinct(ctx context.Context, column string) ([]string, error) {
	query := fmt.Sprintf("SELECT DISTINCT %s FROM emails WHERE %s IS NOT NULL ORDER BY %s", column, column, column)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", column, err)
	}
	defer rows.Close()

	values := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// ListWithoutThumbnail 返回尚未生成缩略图的邮件
func (s *Store) ListWithoutThumbnail(ctx context.Context, limit int) ([]domain.Email, error) {
	query := `SELECT id, body_html FROM emails WHERE thumbnail_path IS NULL ORDER BY id LIMIT ?`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emails := make([]domain.Email, 0, limit)
	for rows.Next() {
		var email domain.Email
		if err := rows.Scan(&email.ID, &email.BodyHTML); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

// SaveThumbnail 保存 base64 编码的缩略图
func (s *Store) SaveThumbnail(ctx context.Context, id int64, thumbnail string) error {
	result, err := s.db.ExecContext(ctx, s.rebind(`UPDATE emails SET thumbnail_path = ? WHERE id = ?`), thumbnail, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrEmailNotFound
	}
	return nil
}

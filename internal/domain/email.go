package domain

import (
	"strconv"
	"strings"
	"time"
)

const (
	// MaxImportPerRequest 单次导入的数量上限
	MaxImportPerRequest = 50
	// UnknownValue 分类失败时使用的占位值
	UnknownValue = "Unknown"
	// DefaultLanguage 语言分类的固定占位值
	DefaultLanguage = "en"
)

// Email 一封导入的营销邮件，(UserID, MessageID) 唯一
//
// 主题、正文、摘要和缩略图列不设长度，MySQL 上为 longtext，PostgreSQL 上为 text。
type Email struct {
	ID             int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID         int64     `json:"user_id" gorm:"not null;uniqueIndex:idx_emails_user_message,priority:1"`
	MessageID      string    `json:"message_id" gorm:"type:varchar(191);not null;uniqueIndex:idx_emails_user_message,priority:2"`
	ThreadID       string    `json:"thread_id" gorm:"type:varchar(191)"`
	Subject        string    `json:"subject"`
	SenderName     string    `json:"sender_name" gorm:"type:varchar(255)"`
	SenderEmail    string    `json:"sender_email" gorm:"type:varchar(255);index"`
	RecipientEmail string    `json:"recipient_email" gorm:"type:varchar(255)"`
	SentAt         time.Time `json:"sent_at" gorm:"index"`
	BodyHTML       string    `json:"body_html"`
	BodyText       string    `json:"body_text"`
	Snippet        string    `json:"snippet"`
	Brand          string    `json:"brand" gorm:"type:varchar(191);index"`
	Language       string    `json:"language" gorm:"type:varchar(16);index"`
	Country        string    `json:"country" gorm:"type:varchar(191);index"`
	ThumbnailPath  *string   `json:"thumbnail_path"`
	CreatedAt      time.Time `json:"created_at"`
}

// ImportedEmail 导入接口中单封邮件的摘要
type ImportedEmail struct {
	MessageID   string `json:"message_id"`
	Subject     string `json:"subject"`
	SenderName  string `json:"sender_name"`
	SenderEmail string `json:"sender_email"`
	TextBody    string `json:"text_body"`
	Brand       string `json:"brand"`
	Language    string `json:"language"`
	Country     string `json:"country"`
}

// ImportResult 一次导入的结果
type ImportResult struct {
	Imported int             `json:"imported"`
	Emails   []ImportedEmail `json:"emails"`
}

// Summary 生成导入接口返回的摘要
func (e *Email) Summary() ImportedEmail {
	return ImportedEmail{
		MessageID:   e.MessageID,
		Subject:     e.Subject,
		SenderName:  e.SenderName,
		SenderEmail: e.SenderEmail,
		TextBody:    e.BodyText,
		Brand:       e.Brand,
		Language:    e.Language,
		Country:     e.Country,
	}
}

// ClampImportMax 解析 max 参数并限制到 [1, 50]
//
// 缺省或无法解析时取 50，小于等于 0 时取 1。
func ClampImportMax(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return MaxImportPerRequest
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return MaxImportPerRequest
	}
	return ClampImportCount(n)
}

// ClampImportCount 将数量限制到 [1, 50]
func ClampImportCount(n int) int {
	switch {
	case n < 1:
		return 1
	case n > MaxImportPerRequest:
		return MaxImportPerRequest
	default:
		return n
	}
}

package domain

import "time"

// User 表示可以登录并导入 Gmail 邮件的账户
type User struct {
	ID                  int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Email               string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	PasswordHash        string    `json:"-" gorm:"column:password;type:varchar(255);not null"`
	EmailsImportedCount int       `json:"emails_imported_count" gorm:"not null;default:0"`
	CreatedAt           time.Time `json:"created_at"`
}

// GmailToken 保存一个邮箱账号的 OAuth 令牌对
//
// 每次授权和每次刷新都会覆盖写入，刷新时保留原 refresh token。
type GmailToken struct {
	UserEmail    string    `json:"user_email" gorm:"primaryKey;type:varchar(255)"`
	AccessToken  string    `json:"-" gorm:"type:text;not null"`
	RefreshToken string    `json:"-" gorm:"type:text"`
	Expiry       time.Time `json:"expiry" gorm:"index"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Expired 判断令牌在 now 时刻是否需要刷新（到期时间不晚于 now）
func (t *GmailToken) Expired(now time.Time) bool {
	return !t.Expiry.After(now)
}

// LoginResult 登录接口返回值
type LoginResult struct {
	Email       string `json:"email"`
	TokenExists bool   `json:"tokenExists"`
}

package domain

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// Brand 品牌及其 favicon，Slug 与邮件的 brand 字段对应
type Brand struct {
	ID          int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string `json:"name" gorm:"type:varchar(255);not null"`
	Domain      string `json:"domain" gorm:"type:varchar(255);uniqueIndex;not null"`
	Slug        string `json:"slug" gorm:"type:varchar(191);index"`
	ImageURL    []byte `json:"-" gorm:"column:image_url"`
	Country     string `json:"country" gorm:"type:varchar(191)"`
	Description string `json:"description" gorm:"type:text"`
}

// BrandSlug 取域名第一个标签作为品牌标识，与邮件品牌识别规则一致
func BrandSlug(domainName string) string {
	domainName = strings.ToLower(strings.TrimSpace(domainName))
	domainName = strings.TrimPrefix(domainName, "www.")
	if i := strings.IndexByte(domainName, '.'); i >= 0 {
		return domainName[:i]
	}
	return domainName
}

// ImageDataURL 将 favicon 转为 data URL，没有图片时返回 nil
func (b *Brand) ImageDataURL() *string {
	if len(b.ImageURL) == 0 {
		return nil
	}
	url := "data:" + http.DetectContentType(b.ImageURL) + ";base64," + base64.StdEncoding.EncodeToString(b.ImageURL)
	return &url
}

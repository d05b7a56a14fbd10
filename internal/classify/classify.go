// Package classify 为导入的邮件打上品牌、语言和国家标签
package classify

import (
	"context"
	"net"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"mailgallery/backend/internal/domain"
)

// tldCountries 按发件域名的顶级标签直接判断国家
var tldCountries = map[string]string{
	"uk": "United Kingdom",
	"pk": "Pakistan",
	"de": "Germany",
	"fr": "France",
	"in": "India",
	"au": "Australia",
	"ca": "Canada",
	"us": "United States",
}

var ipv4Pattern = regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}\b`)

// CountryCache 按 IP 缓存国家查询结果，包括 Unknown
type CountryCache interface {
	Get(ctx context.Context, ip string) (string, bool)
	Set(ctx context.Context, ip, country string)
}

// GeoLocator 将公网 IP 解析为国家
type GeoLocator interface {
	Country(ctx context.Context, ip string) (string, error)
}

// Observer 接收分类过程中的统计事件，可为 nil
type Observer interface {
	GeoLookup(result string)
	GeoCacheHit()
}

// Result 一封邮件的分类结果
type Result struct {
	Brand    string
	Language string
	Country  string
}

// Classifier 组合品牌、语言和国家的识别规则
type Classifier struct {
	locator  GeoLocator
	cache    CountryCache
	observer Observer
	log      *zap.Logger
}

// NewClassifier 创建分类器，locator 为 nil 时只使用顶级域名表
func NewClassifier(locator GeoLocator, cache CountryCache, observer Observer, log *zap.Logger) *Classifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Classifier{locator: locator, cache: cache, observer: observer, log: log}
}

// Classify 对一封邮件分类
func (c *Classifier) Classify(ctx context.Context, senderEmail, text string, received []string) Result {
	return Result{
		Brand:    DetectBrand(senderEmail),
		Language: DetectLanguage(text),
		Country:  c.DetectCountry(ctx, senderEmail, received),
	}
}

// DetectBrand 取发件域名第一个点之前的部分，没有域名时返回 Unknown
func DetectBrand(senderEmail string) string {
	_, host, ok := strings.Cut(senderEmail, "@")
	if !ok || host == "" {
		return domain.UnknownValue
	}
	label, _, _ := strings.Cut(host, ".")
	if label == "" {
		return domain.UnknownValue
	}
	return label
}

// DetectLanguage 目前固定返回 en
func DetectLanguage(string) string {
	return domain.DefaultLanguage
}

// CountryFromTLD 按发件域名的顶级标签查表
func CountryFromTLD(senderEmail string) (string, bool) {
	_, host, _ := strings.Cut(senderEmail, "@")
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return "", false
	}
	tld := host[strings.LastIndexByte(host, '.')+1:]
	country, ok := tldCountries[tld]
	return country, ok
}

// FirstPublicIPv4 在 Received 头中按顺序找第一个公网 IPv4
func FirstPublicIPv4(received []string) (string, bool) {
	for _, header := range received {
		for _, candidate := range ipv4Pattern.FindAllString(header, -1) {
			ip := net.ParseIP(candidate).To4()
			if ip == nil || !isPublic(ip) {
				continue
			}
			return ip.String(), true
		}
	}
	return "", false
}

func isPublic(ip net.IP) bool {
	return !(ip.IsPrivate() ||
		ip.IsLoopback() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsUnspecified() ||
		ip.IsMulticast() ||
		ip.Equal(net.IPv4bcast))
}

// DetectCountry 先查顶级域名表，再用 Received 头中的公网 IP 查询归属地
//
// 查询结果（包括失败得到的 Unknown）都会写入缓存。
func (c *Classifier) DetectCountry(ctx context.Context, senderEmail string, received []string) string {
	if country, ok := CountryFromTLD(senderEmail); ok {
		return country
	}

	ip, ok := FirstPublicIPv4(received)
	if !ok || c.locator == nil {
		return domain.UnknownValue
	}

	if c.cache != nil {
		if country, hit := c.cache.Get(ctx, ip); hit {
			if c.observer != nil {
				c.observer.GeoCacheHit()
			}
			return country
		}
	}

	country, err := c.locator.Country(ctx, ip)
	if err != nil || country == "" {
		if err != nil {
			c.log.Debug("geo lookup failed", zap.String("ip", ip), zap.Error(err))
		}
		country = domain.UnknownValue
	}
	if c.observer != nil {
		c.observer.GeoLookup(country)
	}
	if c.cache != nil && ctx.Err() == nil {
		c.cache.Set(ctx, ip, country)
	}
	return country
}

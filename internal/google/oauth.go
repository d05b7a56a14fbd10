package google

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"

	"mailgallery/backend/internal/config"
)

// ErrRefreshFailed 刷新 access token 失败（未重试）
var ErrRefreshFailed = errors.New("failed to refresh access token")

// OAuth 封装 Google OAuth2 授权码流程
type OAuth struct {
	cfg *oauth2.Config
}

// NewOAuth 根据配置创建 OAuth 客户端，端点未配置时使用 Google 默认端点
func NewOAuth(c config.GoogleConfig) *OAuth {
	endpoint := googleoauth.Endpoint
	if c.AuthURL != "" {
		endpoint.AuthURL = c.AuthURL
	}
	if c.TokenURL != "" {
		endpoint.TokenURL = c.TokenURL
	}

	return &OAuth{cfg: &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Scopes:       []string{gmail.GmailReadonlyScope},
		Endpoint:     endpoint,
	}}
}

// AuthCodeURL 生成授权地址，强制 consent 以保证拿到 refresh token
func (o *OAuth) AuthCodeURL(state string) string {
	return o.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange 用授权码换取令牌
func (o *OAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := o.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

// Refresh 使用 refresh token 换取新的 access token，只尝试一次
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token stored", ErrRefreshFailed)
	}

	tok, err := o.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	if tok.AccessToken == "" {
		return nil, ErrRefreshFailed
	}
	return tok, nil
}

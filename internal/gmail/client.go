package gmail

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const me = "me"

// Client 封装 Gmail Users 服务，绑定一个用户的 access token
type Client struct {
	svc *gmail.UsersService
}

// NewClient 使用 access token 创建 Gmail 客户端
//
// 底层 HTTP 客户端可以通过 ctx 中的 oauth2.HTTPClient 注入；
// opts 可用于覆盖 API 地址。
func NewClient(ctx context.Context, accessToken string, opts ...option.ClientOption) (*Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	all := append([]option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, ts))}, opts...)

	svc, err := gmail.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{svc: svc.Users}, nil
}

// ListMessageIDs 按固定页大小翻页，累积消息 ID 直到不少于 max 或没有下一页
//
// 某一页为空时停止翻页。返回的 ID 可能多于 max，调用方按需截断。
func (c *Client) ListMessageIDs(ctx context.Context, max, pageSize int) ([]string, error) {
	ids := make([]string, 0, max)
	pageToken := ""
	for {
		req := c.svc.Messages.List(me).MaxResults(int64(pageSize)).Context(ctx)
		if pageToken != "" {
			req.PageToken(pageToken)
		}
		res, err := req.Do()
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		if len(res.Messages) == 0 {
			break
		}
		for _, m := range res.Messages {
			if m != nil && m.Id != "" {
				ids = append(ids, m.Id)
			}
		}
		pageToken = res.NextPageToken
		if pageToken == "" || len(ids) >= max {
			break
		}
	}
	return ids, nil
}

// GetMessage 以 full 格式获取完整邮件
func (c *Client) GetMessage(ctx context.Context, id string) (*gmail.Message, error) {
	msg, err := c.svc.Messages.Get(me, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	return msg, nil
}

// Profile 返回当前授权的邮箱地址
func (c *Client) Profile(ctx context.Context) (string, error) {
	profile, err := c.svc.GetProfile(me).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get profile: %w", err)
	}
	return profile.EmailAddress, nil
}

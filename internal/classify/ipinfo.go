package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// ErrNotFound 查询服务没有该 IP 的记录
var ErrNotFound = errors.New("ip not found")

// IPInfoLocator 调用 ipinfo lite 接口查询 IP 所属国家
type IPInfoLocator struct {
	endpoint string
	token    string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewIPInfoLocator 创建 ipinfo 查询器
//
// 参数:
//   - endpoint: 接口前缀，如 https://ipinfo.io/lite
//   - token: 访问令牌
//   - perSecond: 每秒最多发起的查询次数，<= 0 表示不限速
//   - timeout: 单次请求超时
func NewIPInfoLocator(endpoint, token string, perSecond float64, timeout time.Duration) *IPInfoLocator {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &IPInfoLocator{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(limit, 1),
	}
}

type ipinfoResponse struct {
	Country string `json:"country"`
}

// Country 查询 IP 的国家名称
func (l *IPInfoLocator) Country(ctx context.Context, ip string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}

	u := l.endpoint + "/" + url.PathEscape(ip)
	if l.token != "" {
		u += "?token=" + url.QueryEscape(l.token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ipinfo returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", err
	}
	var data ipinfoResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("ipinfo response is not JSON: %w", err)
	}
	return data.Country, nil
}

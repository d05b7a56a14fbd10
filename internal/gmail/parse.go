package gmail

import (
	"encoding/base64"
	"net/mail"
	"regexp"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"
)

const (
	defaultSubject = "(No Subject)"
	unknown        = "Unknown"
	snippetLength  = 300
)

var fromPattern = regexp.MustCompile(`^(.*?)\s*<(.+?)>$`)

// Header 邮件头，保留原始顺序
type Header struct {
	Name  string
	Value string
}

// ParsedMessage 从 Gmail 完整邮件中提取的字段
type ParsedMessage struct {
	MessageID   string
	ThreadID    string
	Subject     string
	SenderName  string
	SenderEmail string
	Recipient   string
	SentAt      time.Time
	HTMLBody    string
	TextBody    string
	Snippet     string
	Headers     []Header
}

// HeaderValues 返回指定名称的全部邮件头，名称不区分大小写
func (p *ParsedMessage) HeaderValues(name string) []string {
	var values []string
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			values = append(values, h.Value)
		}
	}
	return values
}

// ParseMessage 解析 full 格式的 Gmail 邮件
//
// now 用于 Date 头缺失或无法解析且没有 internalDate 时的兜底时间。
func ParseMessage(msg *gmail.Message, now time.Time) (*ParsedMessage, error) {
	if msg == nil || msg.Payload == nil {
		return nil, ErrEmptyPayload
	}

	headers := make([]Header, 0, len(msg.Payload.Headers))
	for _, h := range msg.Payload.Headers {
		if h != nil {
			headers = append(headers, Header{Name: h.Name, Value: h.Value})
		}
	}

	p := &ParsedMessage{
		MessageID: msg.Id,
		ThreadID:  msg.ThreadId,
		Headers:   headers,
	}

	p.Subject = firstHeader(headers, "Subject", defaultSubject)
	p.Recipient = firstHeader(headers, "To", unknown)
	p.SenderName, p.SenderEmail = splitFrom(firstHeader(headers, "From", unknown))
	p.SentAt = sentAt(firstHeader(headers, "Date", ""), msg.InternalDate, now)

	html, err := decodeFirst(msg.Payload, "text/html")
	if err != nil {
		return nil, err
	}
	text, err := decodeFirst(msg.Payload, "text/plain")
	if err != nil {
		return nil, err
	}
	p.TextBody = text
	p.HTMLBody = html
	if p.HTMLBody == "" {
		p.HTMLBody = "<html><body>" + text + "</body></html>"
	}

	p.Snippet = msg.Snippet
	if p.Snippet == "" {
		p.Snippet = truncateRunes(text, snippetLength)
	}

	return p, nil
}

// FindPart 深度优先查找第一个满足条件的节点（包括根节点），先序遍历，同级按顺序
func FindPart(root *gmail.MessagePart, match func(*gmail.MessagePart) bool) *gmail.MessagePart {
	if root == nil {
		return nil
	}
	stack := []*gmail.MessagePart{root}
	for len(stack) > 0 {
		part := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if part == nil {
			continue
		}
		if match(part) {
			return part
		}
		for i := len(part.Parts) - 1; i >= 0; i-- {
			stack = append(stack, part.Parts[i])
		}
	}
	return nil
}

// hasBody 按 MIME 类型匹配且 body.data 非空
func hasBody(mimeType string) func(*gmail.MessagePart) bool {
	return func(p *gmail.MessagePart) bool {
		return strings.EqualFold(p.MimeType, mimeType) && p.Body != nil && p.Body.Data != ""
	}
}

func decodeFirst(root *gmail.MessagePart, mimeType string) (string, error) {
	part := FindPart(root, hasBody(mimeType))
	if part == nil {
		return "", nil
	}
	return DecodeBody(part.Body.Data)
}

// DecodeBody 解码 URL 安全的 base64，兼容带或不带填充
func DecodeBody(data string) (string, error) {
	data = strings.TrimRight(strings.TrimSpace(data), "=")
	decoded, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return "", &DecodeError{Err: err}
	}
	return string(decoded), nil
}

func firstHeader(headers []Header, name, fallback string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			if h.Value == "" {
				return fallback
			}
			return h.Value
		}
	}
	return fallback
}

// splitFrom 将 `"Name" <addr>` 拆分为名称和地址，不匹配时两者都取原值
func splitFrom(from string) (name, email string) {
	m := fromPattern.FindStringSubmatch(from)
	if m == nil {
		return from, from
	}
	name = strings.TrimSpace(strings.NewReplacer(`"`, "", "'", "").Replace(m[1]))
	email = strings.TrimSpace(m[2])
	return name, email
}

func sentAt(dateHeader string, internalDate int64, now time.Time) time.Time {
	if dateHeader != "" {
		if t, err := mail.ParseDate(dateHeader); err == nil {
			return t.UTC()
		}
	}
	if internalDate > 0 {
		return time.UnixMilli(internalDate).UTC()
	}
	return now.UTC()
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

package gmail

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
)

func enc(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func part(mimeType, body string, children ...*gmail.MessagePart) *gmail.MessagePart {
	p := &gmail.MessagePart{MimeType: mimeType, Parts: children}
	if body != "" {
		p.Body = &gmail.MessagePartBody{Data: enc(body)}
	}
	return p
}

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestParseMessage(t *testing.T) {
	t.Run("解析邮件头和 multipart 正文", func(t *testing.T) {
		msg := &gmail.Message{
			Id:       "m1",
			ThreadId: "t1",
			Snippet:  "provider snippet",
			Payload: &gmail.MessagePart{
				MimeType: "multipart/alternative",
				Headers: []*gmail.MessagePartHeader{
					{Name: "subject", Value: "Summer Sale"},
					{Name: "From", Value: `"Nike News" <news@nike.com>`},
					{Name: "To", Value: "me@example.com"},
					{Name: "Date", Value: "Mon, 02 Jan 2006 15:04:05 -0700"},
				},
				Parts: []*gmail.MessagePart{
					part("text/plain", "plain body"),
					part("text/html", "<p>html body</p>"),
				},
			},
		}

		p, err := ParseMessage(msg, now)
		require.NoError(t, err)
		assert.Equal(t, "m1", p.MessageID)
		assert.Equal(t, "t1", p.ThreadID)
		assert.Equal(t, "Summer Sale", p.Subject)
		assert.Equal(t, "Nike News", p.SenderName)
		assert.Equal(t, "news@nike.com", p.SenderEmail)
		assert.Equal(t, "me@example.com", p.Recipient)
		assert.Equal(t, time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC), p.SentAt)
		assert.Equal(t, "<p>html body</p>", p.HTMLBody)
		assert.Equal(t, "plain body", p.TextBody)
		assert.Equal(t, "provider snippet", p.Snippet)
	})

	t.Run("只有纯文本时生成 HTML 外壳", func(t *testing.T) {
		msg := &gmail.Message{Id: "m2", Payload: part("text/plain", "hello world")}

		p, err := ParseMessage(msg, now)
		require.NoError(t, err)
		assert.Equal(t, "<html><body>hello world</body></html>", p.HTMLBody)
		assert.Equal(t, "hello world", p.TextBody)
		assert.Equal(t, "hello world", p.Snippet)
	})

	t.Run("缺失的邮件头使用默认值", func(t *testing.T) {
		msg := &gmail.Message{Id: "m3", Payload: &gmail.MessagePart{MimeType: "text/html"}}

		p, err := ParseMessage(msg, now)
		require.NoError(t, err)
		assert.Equal(t, "(No Subject)", p.Subject)
		assert.Equal(t, "Unknown", p.SenderName)
		assert.Equal(t, "Unknown", p.SenderEmail)
		assert.Equal(t, "Unknown", p.Recipient)
		assert.Equal(t, now, p.SentAt)
		assert.Equal(t, "<html><body></body></html>", p.HTMLBody)
	})

	t.Run("无法解析的日期使用 internalDate", func(t *testing.T) {
		msg := &gmail.Message{
			Id:           "m4",
			InternalDate: 1700000000000,
			Payload: &gmail.MessagePart{
				Headers: []*gmail.MessagePartHeader{{Name: "Date", Value: "yesterday"}},
			},
		}

		p, err := ParseMessage(msg, now)
		require.NoError(t, err)
		assert.Equal(t, time.UnixMilli(1700000000000).UTC(), p.SentAt)
	})

	t.Run("摘要截断为 300 字符", func(t *testing.T) {
		long := strings.Repeat("é", 400)
		p, err := ParseMessage(&gmail.Message{Payload: part("text/plain", long)}, now)
		require.NoError(t, err)
		assert.Equal(t, 300, len([]rune(p.Snippet)))
	})

	t.Run("没有 payload 返回错误", func(t *testing.T) {
		_, err := ParseMessage(&gmail.Message{Id: "x"}, now)
		assert.ErrorIs(t, err, ErrEmptyPayload)
	})

	t.Run("非法 base64 返回解码错误", func(t *testing.T) {
		msg := &gmail.Message{Payload: &gmail.MessagePart{
			MimeType: "text/html",
			Body:     &gmail.MessagePartBody{Data: "!!!not-base64!!!"},
		}}
		_, err := ParseMessage(msg, now)
		var decodeErr *DecodeError
		assert.ErrorAs(t, err, &decodeErr)
	})
}

func TestFindPart(t *testing.T) {
	t.Run("深度优先且先匹配者胜出", func(t *testing.T) {
		// 第一个子树中嵌套的 HTML 先于第二个兄弟节点被访问
		root := part("multipart/mixed", "",
			part("multipart/alternative", "",
				part("text/plain", "first text"),
				part("multipart/related", "",
					part("text/html", "deep html"),
				),
			),
			part("text/html", "shallow html"),
		)

		found := FindPart(root, hasBody("text/html"))
		require.NotNil(t, found)
		body, err := DecodeBody(found.Body.Data)
		require.NoError(t, err)
		assert.Equal(t, "deep html", body)
	})

	t.Run("跳过没有数据的节点", func(t *testing.T) {
		root := part("multipart/alternative", "",
			&gmail.MessagePart{MimeType: "text/html", Body: &gmail.MessagePartBody{}},
			part("text/html", "second"),
		)
		found := FindPart(root, hasBody("text/html"))
		require.NotNil(t, found)
		body, _ := DecodeBody(found.Body.Data)
		assert.Equal(t, "second", body)
	})

	t.Run("根节点本身可以匹配", func(t *testing.T) {
		root := part("text/html", "root")
		assert.Same(t, root, FindPart(root, hasBody("text/html")))
	})

	t.Run("没有匹配返回 nil", func(t *testing.T) {
		assert.Nil(t, FindPart(part("text/plain", "x"), hasBody("text/html")))
		assert.Nil(t, FindPart(nil, hasBody("text/html")))
	})
}

func TestSplitFrom(t *testing.T) {
	tests := []struct {
		from, name, email string
	}{
		{`"Zara" <hello@zara.com>`, "Zara", "hello@zara.com"},
		{`O'Neill Shop <shop@oneill.co.uk>`, "ONeill Shop", "shop@oneill.co.uk"},
		{`<bare@example.com>`, "", "bare@example.com"},
		{`plain@example.com`, "plain@example.com", "plain@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			name, email := splitFrom(tt.from)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.email, email)
		})
	}
}

func TestDecodeBody(t *testing.T) {
	padded := base64.URLEncoding.EncodeToString([]byte("a?b>"))
	raw := base64.RawURLEncoding.EncodeToString([]byte("a?b>"))

	for _, data := range []string{padded, raw} {
		got, err := DecodeBody(data)
		require.NoError(t, err)
		assert.Equal(t, "a?b>", got)
	}
}

func TestHeaderValues(t *testing.T) {
	p := &ParsedMessage{Headers: []Header{
		{Name: "Received", Value: "a"},
		{Name: "X-Other", Value: "b"},
		{Name: "received", Value: "c"},
	}}
	assert.Equal(t, []string{"a", "c"}, p.HeaderValues("Received"))
}

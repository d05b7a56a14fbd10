package gmail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

// fakeGmail 模拟 Gmail API 的 list/get/profile 接口
type fakeGmail struct {
	pages      [][]string // 每页的消息 ID
	listCalls  int
	maxResults []string
	authHeader string
}

func (f *fakeGmail) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.authHeader = r.Header.Get("Authorization")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/gmail/v1/users/me/messages":
		f.listCalls++
		f.maxResults = append(f.maxResults, r.URL.Query().Get("maxResults"))
		page := 0
		if tok := r.URL.Query().Get("pageToken"); tok != "" {
			page, _ = strconv.Atoi(tok)
		}
		resp := map[string]any{}
		if page < len(f.pages) {
			msgs := make([]map[string]string, 0)
			for _, id := range f.pages[page] {
				msgs = append(msgs, map[string]string{"id": id, "threadId": "t-" + id})
			}
			resp["messages"] = msgs
			if page+1 < len(f.pages) {
				resp["nextPageToken"] = strconv.Itoa(page + 1)
			}
		}
		_ = json.NewEncoder(w).Encode(resp)
	case r.URL.Path == "/gmail/v1/users/me/profile":
		_ = json.NewEncoder(w).Encode(map[string]any{"emailAddress": "owner@gmail.com"})
	case r.URL.Path == "/gmail/v1/users/me/messages/m1":
		if r.URL.Query().Get("format") != "full" {
			http.Error(w, "format must be full", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "m1",
			"snippet": "hi",
			"payload": map[string]any{
				"mimeType": "text/plain",
				"body":     map[string]any{"data": enc("hello")},
			},
		})
	default:
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, srv.Client())
	client, err := NewClient(ctx, "access-123", option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return client
}

func TestClient_ListMessageIDs(t *testing.T) {
	t.Run("翻页直到达到上限", func(t *testing.T) {
		fake := &fakeGmail{pages: [][]string{{"a", "b", "c"}, {"d", "e", "f"}, {"g"}}}
		client := newTestClient(t, fake)

		ids, err := client.ListMessageIDs(context.Background(), 4, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, ids)
		assert.Equal(t, 2, fake.listCalls)
		assert.Equal(t, []string{"3", "3"}, fake.maxResults)
		assert.Equal(t, "Bearer access-123", fake.authHeader)
	})

	t.Run("没有下一页时停止", func(t *testing.T) {
		fake := &fakeGmail{pages: [][]string{{"a"}, {"b"}}}
		client := newTestClient(t, fake)

		ids, err := client.ListMessageIDs(context.Background(), 50, 50)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids)
		assert.Equal(t, 2, fake.listCalls)
	})

	t.Run("空邮箱", func(t *testing.T) {
		fake := &fakeGmail{}
		client := newTestClient(t, fake)

		ids, err := client.ListMessageIDs(context.Background(), 50, 50)
		require.NoError(t, err)
		assert.Empty(t, ids)
		assert.Equal(t, 1, fake.listCalls)
	})
}

func TestClient_GetMessageAndProfile(t *testing.T) {
	client := newTestClient(t, &fakeGmail{})

	msg, err := client.GetMessage(context.Background(), "m1")
	require.NoError(t, err)
	p, err := ParseMessage(msg, now)
	require.NoError(t, err)
	assert.Equal(t, "hello", p.TextBody)

	_, err = client.GetMessage(context.Background(), "missing")
	assert.Error(t, err)

	email, err := client.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "owner@gmail.com", email)
}

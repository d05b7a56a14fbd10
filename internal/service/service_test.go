package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"

	"mailgallery/backend/internal/domain"
	"mailgallery/backend/internal/storage/memory"
)

// fakeMailClient 按固定顺序返回消息
type fakeMailClient struct {
	ids       []string
	messages  map[string]*gmailapi.Message
	failOn    string
	listedMax int
	fetched   []string
}

func (f *fakeMailClient) ListMessageIDs(_ context.Context, max, _ int) ([]string, error) {
	f.listedMax = max
	return f.ids, nil
}

func (f *fakeMailClient) GetMessage(_ context.Context, id string) (*gmailapi.Message, error) {
	f.fetched = append(f.fetched, id)
	if id == f.failOn {
		return nil, errors.New("upstream 500")
	}
	msg, ok := f.messages[id]
	if !ok {
		return nil, fmt.Errorf("message %s not found", id)
	}
	return msg, nil
}

func (f *fakeMailClient) add(msg *gmailapi.Message) {
	if f.messages == nil {
		f.messages = make(map[string]*gmailapi.Message)
	}
	f.ids = append(f.ids, msg.Id)
	f.messages[msg.Id] = msg
}

// MockRefresher 模拟 OAuth 刷新
type MockRefresher struct {
	mock.Mock
}

func (m *MockRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth2.Token), args.Error(1)
}

func encodeBody(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func gmailMessage(id, from, subject string, received ...string) *gmailapi.Message {
	headers := []*gmailapi.MessagePartHeader{
		{Name: "From", Value: from},
		{Name: "To", Value: "alice@example.com"},
		{Name: "Subject", Value: subject},
		{Name: "Date", Value: "Fri, 01 Mar 2024 12:00:00 +0000"},
	}
	for _, r := range received {
		headers = append(headers, &gmailapi.MessagePartHeader{Name: "Received", Value: r})
	}
	return &gmailapi.Message{
		Id:       id,
		ThreadId: "t-" + id,
		Snippet:  subject + " snippet",
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/alternative",
			Headers:  headers,
			Parts: []*gmailapi.MessagePart{
				{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: encodeBody(subject + " text")}},
				{MimeType: "text/html", Body: &gmailapi.MessagePartBody{Data: encodeBody("<p>" + subject + "</p>")}},
			},
		},
	}
}

type importFixture struct {
	store     *memory.Store
	client    *fakeMailClient
	refresher *MockRefresher
	service   *ImportService
	tokenSeen string
}

func newImportFixture(t *testing.T, expiry time.Time) *importFixture {
	t.Helper()
	ctx := context.Background()

	f := &importFixture{
		store:     memory.NewStore(),
		client:    &fakeMailClient{},
		refresher: &MockRefresher{},
	}
	require.NoError(t, f.store.CreateUser(ctx, &domain.User{Email: "alice@example.com", PasswordHash: "x"}))
	require.NoError(t, f.store.SaveToken(ctx, &domain.GmailToken{
		UserEmail:    "alice@example.com",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Expiry:       expiry,
	}))

	f.service = NewImportService(ImportServiceDeps{
		Users:     f.store,
		Tokens:    f.store,
		Emails:    f.store,
		Refresher: f.refresher,
		Clients: func(_ context.Context, accessToken string) (MailClient, error) {
			f.tokenSeen = accessToken
			return f.client, nil
		},
	})
	return f
}

func (f *importFixture) importedCount(t *testing.T) int {
	t.Helper()
	user, err := f.store.GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	return user.EmailsImportedCount
}

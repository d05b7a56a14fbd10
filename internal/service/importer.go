package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"mailgallery/backend/internal/classify"
	"mailgallery/backend/internal/domain"
	"mailgallery/backend/internal/gmail"
	"mailgallery/backend/internal/storage"
)

var (
	ErrMissingUserEmail = errors.New("user_email is required")
	ErrNoToken          = errors.New("no gmail tokens found")
	ErrRefreshFailed    = errors.New("failed to refresh access token")
)

// MailClient 导入流程需要的 Gmail 操作
type MailClient interface {
	ListMessageIDs(ctx context.Context, max, pageSize int) ([]string, error)
	GetMessage(ctx context.Context, id string) (*gmailapi.Message, error)
}

// MailClientFactory 用 access token 创建 MailClient
type MailClientFactory func(ctx context.Context, accessToken string) (MailClient, error)

// GmailClientFactory 返回基于 Gmail API 的工厂，opts 用于覆盖 API 地址
func GmailClientFactory(opts ...option.ClientOption) MailClientFactory {
	return func(ctx context.Context, accessToken string) (MailClient, error) {
		return gmail.NewClient(ctx, accessToken, opts...)
	}
}

// TokenRefresher 用 refresh token 换取新的 access token
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// ImportObserver 接收导入统计，可为 nil
type ImportObserver interface {
	RecordImport(imported, skipped int, duration time.Duration, err error)
	RecordTokenRefresh(ok bool)
}

// ImportInput 一次导入请求
type ImportInput struct {
	UserEmail string
	Max       int
}

// ImportService 从 Gmail 导入邮件并分类入库
type ImportService struct {
	users      storage.UserRepository
	tokens     storage.TokenRepository
	emails     storage.EmailRepository
	refresher  TokenRefresher
	clients    MailClientFactory
	classifier *classify.Classifier
	observer   ImportObserver
	pageSize   int
	maxImport  int
	logger     *zap.Logger
	now        func() time.Time
}

// ImportServiceDeps 创建 ImportService 所需的依赖
type ImportServiceDeps struct {
	Users      storage.UserRepository
	Tokens     storage.TokenRepository
	Emails     storage.EmailRepository
	Refresher  TokenRefresher
	Clients    MailClientFactory
	Classifier *classify.Classifier
	Observer   ImportObserver
	PageSize   int
	// MaxPerRequest 单次导入上限，0 表示 50，超过 50 按 50 处理
	MaxPerRequest int
	Logger        *zap.Logger
}

// NewImportService 创建导入服务
func NewImportService(deps ImportServiceDeps) *ImportService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = domain.MaxImportPerRequest
	}
	maxImport := domain.MaxImportPerRequest
	if deps.MaxPerRequest > 0 {
		maxImport = domain.ClampImportCount(deps.MaxPerRequest)
	}
	classifier := deps.Classifier
	if classifier == nil {
		classifier = classify.NewClassifier(nil, nil, nil, logger)
	}
	return &ImportService{
		users:      deps.Users,
		tokens:     deps.Tokens,
		emails:     deps.Emails,
		refresher:  deps.Refresher,
		clients:    deps.Clients,
		classifier: classifier,
		observer:   deps.Observer,
		pageSize:   pageSize,
		maxImport:  maxImport,
		logger:     logger,
		now:        time.Now,
	}
}

// Import 导入用户最近的邮件，已导入过的 message_id 会被跳过
//
// 逐封顺序处理。任一封拉取、解析或写入失败都会中止本批次，已写入的行保留。
func (s *ImportService) Import(ctx context.Context, input ImportInput) (result *domain.ImportResult, err error) {
	userEmail := domain.NormalizeEmail(input.UserEmail)
	if userEmail == "" {
		return nil, ErrMissingUserEmail
	}
	limit := min(domain.ClampImportCount(input.Max), s.maxImport)

	start := s.now()
	var skipped int
	imported := make([]domain.ImportedEmail, 0, limit)
	defer func() {
		if s.observer != nil {
			s.observer.RecordImport(len(imported), skipped, s.now().Sub(start), err)
		}
	}()

	user, err := s.users.GetUserByEmail(ctx, userEmail)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.accessToken(ctx, userEmail)
	if err != nil {
		return nil, err
	}

	client, err := s.clients(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	ids, err := client.ListMessageIDs(ctx, limit, s.pageSize)
	if err != nil {
		return nil, err
	}

	// 已写入的行即使后续失败也计入用户的导入数量
	defer func() {
		if len(imported) == 0 {
			return
		}
		if incErr := s.users.IncrementImportedCount(context.WithoutCancel(ctx), user.ID, len(imported)); incErr != nil {
			s.logger.Error("failed to update imported count",
				zap.Int64("user_id", user.ID),
				zap.Int("count", len(imported)),
				zap.Error(incErr),
			)
			if err == nil {
				err = fmt.Errorf("update imported count: %w", incErr)
				result = nil
			}
		}
	}()

	for _, id := range ids {
		if len(imported) >= limit {
			break
		}

		exists, err := s.emails.EmailExists(ctx, user.ID, id)
		if err != nil {
			return nil, fmt.Errorf("check message %s: %w", id, err)
		}
		if exists {
			skipped++
			continue
		}

		email, err := s.fetch(ctx, client, user.ID, id)
		if err != nil {
			return nil, err
		}

		inserted, err := s.emails.InsertEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("insert message %s: %w", id, err)
		}
		if !inserted {
			// 并发导入抢先写入了同一封
			skipped++
			continue
		}
		imported = append(imported, email.Summary())
	}

	s.logger.Info("gmail import finished",
		zap.String("user_email", userEmail),
		zap.Int("listed", len(ids)),
		zap.Int("imported", len(imported)),
		zap.Int("skipped", skipped),
	)

	return &domain.ImportResult{Imported: len(imported), Emails: imported}, nil
}

// accessToken 返回可用的 access token，过期时刷新一次并保存
func (s *ImportService) accessToken(ctx context.Context, userEmail string) (string, error) {
	token, err := s.tokens.GetToken(ctx, userEmail)
	if errors.Is(err, storage.ErrTokenNotFound) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", err
	}

	if !token.Expired(s.now()) {
		return token.AccessToken, nil
	}

	refreshed, err := s.refresh(ctx, token.RefreshToken)
	if s.observer != nil {
		s.observer.RecordTokenRefresh(err == nil)
	}
	if err != nil {
		s.logger.Warn("access token refresh failed", zap.String("user_email", userEmail), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	token.AccessToken = refreshed.AccessToken
	token.Expiry = refreshed.Expiry
	if err := s.tokens.SaveToken(ctx, token); err != nil {
		return "", fmt.Errorf("save refreshed token: %w", err)
	}
	return token.AccessToken, nil
}

func (s *ImportService) refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, errors.New("no refresh token stored")
	}
	if s.refresher == nil {
		return nil, errors.New("token refresher not configured")
	}
	token, err := s.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if token == nil || token.AccessToken == "" {
		return nil, errors.New("provider returned no access token")
	}
	return token, nil
}

// fetch 拉取完整邮件、解析并分类
func (s *ImportService) fetch(ctx context.Context, client MailClient, userID int64, id string) (*domain.Email, error) {
	msg, err := client.GetMessage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch message %s: %w", id, err)
	}

	parsed, err := gmail.ParseMessage(msg, s.now())
	if err != nil {
		return nil, fmt.Errorf("parse message %s: %w", id, err)
	}

	class := s.classifier.Classify(ctx, parsed.SenderEmail, parsed.TextBody, parsed.HeaderValues("Received"))

	return &domain.Email{
		UserID:         userID,
		MessageID:      parsed.MessageID,
		ThreadID:       parsed.ThreadID,
		Subject:        parsed.Subject,
		SenderName:     parsed.SenderName,
		SenderEmail:    parsed.SenderEmail,
		RecipientEmail: parsed.Recipient,
		SentAt:         parsed.SentAt,
		BodyHTML:       parsed.HTMLBody,
		BodyText:       parsed.TextBody,
		Snippet:        parsed.Snippet,
		Brand:          class.Brand,
		Language:       class.Language,
		Country:        class.Country,
		CreatedAt:      s.now().UTC(),
	}, nil
}

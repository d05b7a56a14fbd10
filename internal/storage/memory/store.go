package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"mailgallery/backend/internal/domain"
	"mailgallery/backend/internal/storage"
)

// Store 使用内存保存用户、令牌与邮件，主要用于开发验证和测试。
type Store struct {
	mu sync.RWMutex

	users       map[int64]*domain.User
	byEmail     map[string]int64 // email -> userID
	tokens      map[string]*domain.GmailToken
	emails      map[int64]*domain.Email
	byMessageID map[string]int64         // "userID:messageID" -> emailID
	brands      map[string]*domain.Brand // domain -> brand

	nextUserID  int64
	nextEmailID int64
	nextBrandID int64

	now func() time.Time
}

var _ storage.Store = (*Store)(nil)

// NewStore 创建内存存储
func NewStore() *Store {
	return &Store{
		users:       make(map[int64]*domain.User),
		byEmail:     make(map[string]int64),
		tokens:      make(map[string]*domain.GmailToken),
		emails:      make(map[int64]*domain.Email),
		byMessageID: make(map[string]int64),
		brands:      make(map[string]*domain.Brand),
		now:         time.Now,
	}
}

// Close 内存存储无需释放资源
func (s *Store) Close() error { return nil }

// Health 内存存储始终可用
func (s *Store) Health() error { return nil }

// ========== User Repository ==========

func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := domain.NormalizeEmail(user.Email)
	if _, ok := s.byEmail[email]; ok {
		return storage.ErrUserExists
	}

	s.nextUserID++
	user.ID = s.nextUserID
	user.Email = email
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	clone := *user
	s.users[user.ID] = &clone
	s.byEmail[email] = user.ID
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	clone := *s.users[id]
	return &clone, nil
}

func (s *Store) IncrementImportedCount(_ context.Context, userID int64, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	user.EmailsImportedCount += n
	return nil
}

func (s *Store) LatestTokenUserEmail(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.GmailToken
	for email, token := range s.tokens {
		if _, ok := s.byEmail[email]; !ok {
			continue
		}
		if latest == nil || token.Expiry.After(latest.Expiry) {
			latest = token
		}
	}
	if latest == nil {
		return "", storage.ErrUserNotFound
	}
	return latest.UserEmail, nil
}

// ========== Token Repository ==========

func (s *Store) GetToken(_ context.Context, userEmail string) (*domain.GmailToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.tokens[domain.NormalizeEmail(userEmail)]
	if !ok {
		return nil, storage.ErrTokenNotFound
	}
	clone := *token
	return &clone, nil
}

func (s *Store) SaveToken(_ context.Context, token *domain.GmailToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *token
	clone.UserEmail = domain.NormalizeEmail(token.UserEmail)
	clone.UpdatedAt = s.now()
	if prev, ok := s.tokens[clone.UserEmail]; ok && clone.RefreshToken == "" {
		clone.RefreshToken = prev.RefreshToken
	}
	s.tokens[clone.UserEmail] = &clone
	return nil
}

// ========== Email Repository ==========

func messageKey(userID int64, messageID string) string {
	return strconv.FormatInt(userID, 10) + ":" + messageID
}

func (s *Store) EmailExists(_ context.Context, userID int64, messageID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byMessageID[messageKey(userID, messageID)]
	return ok, nil
}

func (s *Store) InsertEmail(_ context.Context, email *domain.Email) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := messageKey(email.UserID, email.MessageID)
	if _, ok := s.byMessageID[key]; ok {
		return false, nil
	}

	s.nextEmailID++
	email.ID = s.nextEmailID
	if email.CreatedAt.IsZero() {
		email.CreatedAt = s.now()
	}
	clone := *email
	s.emails[email.ID] = &clone
	s.byMessageID[key] = email.ID
	return true, nil
}

func (s *Store) GetEmail(_ context.Context, id int64) (*domain.Email, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email, ok := s.emails[id]
	if !ok {
		return nil, storage.ErrEmailNotFound
	}
	clone := *email
	return &clone, nil
}

func (s *Store) ListTemplates(_ context.Context, query domain.TemplateQuery) ([]domain.TemplateSummary, int, error) {
	query = query.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*domain.Email, 0, len(s.emails))
	for _, email := range s.emails {
		if matchesTemplate(email, query) {
			matched = append(matched, email)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].SentAt.Equal(matched[j].SentAt) {
			return matched[i].SentAt.After(matched[j].SentAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	start := query.Offset()
	if start > total {
		start = total
	}
	end := start + query.Limit
	if end > total {
		end = total
	}

	rows := make([]domain.TemplateSummary, 0, end-start)
	for _, email := range matched[start:end] {
		rows = append(rows, domain.TemplateSummary{
			ID:            email.ID,
			Subject:       email.Subject,
			SenderName:    email.SenderName,
			SenderEmail:   email.SenderEmail,
			Snippet:       email.Snippet,
			Brand:         email.Brand,
			Language:      email.Language,
			Country:       email.Country,
			SentAt:        email.SentAt,
			ThumbnailPath: email.ThumbnailPath,
		})
	}
	return rows, total, nil
}

func matchesTemplate(email *domain.Email, query domain.TemplateQuery) bool {
	if query.Search != "" {
		needle := strings.ToLower(query.Search)
		if !strings.Contains(strings.ToLower(email.Subject), needle) &&
			!strings.Contains(strings.ToLower(email.Snippet), needle) {
			return false
		}
	}
	if query.Brand != "" && email.Brand != query.Brand {
		return false
	}
	if query.Language != "" && email.Language != query.Language {
		return false
	}
	if query.Country != "" && email.Country != query.Country {
		return false
	}
	return true
}

func (s *Store) ListFilterOptions(_ context.Context) (*domain.FilterOptions, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	brands := map[string]struct{}{}
	languages := map[string]struct{}{}
	countries := map[string]struct{}{}
	for _, email := range s.emails {
		brands[email.Brand] = struct{}{}
		languages[email.Language] = struct{}{}
		countries[email.Country] = struct{}{}
	}

	return &domain.FilterOptions{
		Brands:    sortedKeys(brands),
		Languages: sortedKeys(languages),
		Countries: sortedKeys(countries),
	}, nil
}

func (s *Store) ListWithoutThumbnail(_ context.Context, limit int) ([]domain.Email, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0)
	for id, email := range s.emails {
		if email.ThumbnailPath == nil {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]domain.Email, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.emails[id])
	}
	return out, nil
}

func (s *Store) SaveThumbnail(_ context.Context, id int64, thumbnail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email, ok := s.emails[id]
	if !ok {
		return storage.ErrEmailNotFound
	}
	email.ThumbnailPath = &thumbnail
	return nil
}

// ========== Brand Repository ==========

func (s *Store) SaveBrand(_ context.Context, brand *domain.Brand) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(brand.Domain)
	if existing, ok := s.brands[key]; ok {
		brand.ID = existing.ID
	} else {
		s.nextBrandID++
		brand.ID = s.nextBrandID
	}
	if brand.Slug == "" {
		brand.Slug = domain.BrandSlug(brand.Domain)
	}
	clone := *brand
	s.brands[key] = &clone
	return nil
}

func (s *Store) BrandImages(_ context.Context, slugs []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(slugs))
	for _, slug := range slugs {
		wanted[slug] = struct{}{}
	}

	images := make(map[string]string)
	for _, brand := range s.brands {
		if _, ok := wanted[brand.Slug]; !ok {
			continue
		}
		if _, done := images[brand.Slug]; done {
			continue
		}
		if url := brand.ImageDataURL(); url != nil {
			images[brand.Slug] = *url
		}
	}
	return images, nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

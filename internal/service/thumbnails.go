package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"mailgallery/backend/internal/domain"
	"mailgallery/backend/internal/pool"
	"mailgallery/backend/internal/storage"
	"mailgallery/backend/internal/thumbnail"
)

// Renderer 把 HTML 渲染为 PNG 截图
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
	Close()
}

// RendererOpener 每个批次打开一次渲染器
type RendererOpener func(ctx context.Context) (Renderer, error)

// ThumbnailObserver 接收缩略图统计，可为 nil
type ThumbnailObserver interface {
	RecordThumbnail(duration time.Duration, err error)
}

// ThumbnailOptions 缩略图批处理参数
type ThumbnailOptions struct {
	Width   int
	Height  int
	Workers int
}

// ThumbnailReport 一个批次的结果
type ThumbnailReport struct {
	Processed int
	Generated int
	Failed    int
}

// ThumbnailService 为尚无缩略图的邮件生成缩略图
type ThumbnailService struct {
	emails   storage.EmailRepository
	open     RendererOpener
	opts     ThumbnailOptions
	observer ThumbnailObserver
	logger   *zap.Logger
}

// NewThumbnailService 创建缩略图服务
func NewThumbnailService(emails storage.EmailRepository, open RendererOpener, opts ThumbnailOptions, observer ThumbnailObserver, logger *zap.Logger) *ThumbnailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &ThumbnailService{emails: emails, open: open, opts: opts, observer: observer, logger: logger}
}

// ChromeOpener 使用无头 Chrome 的渲染器
func ChromeOpener(opts thumbnail.Options, logger *zap.Logger) RendererOpener {
	return func(ctx context.Context) (Renderer, error) {
		return thumbnail.NewChromeRenderer(ctx, opts, logger)
	}
}

// GenerateBatch 处理最多 n 封邮件，单封失败记录日志后跳过
func (s *ThumbnailService) GenerateBatch(ctx context.Context, n int) (*ThumbnailReport, error) {
	emails, err := s.emails.ListWithoutThumbnail(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("list emails without thumbnail: %w", err)
	}
	if len(emails) == 0 {
		s.logger.Info("no emails without thumbnails")
		return &ThumbnailReport{}, nil
	}

	s.logger.Info("generating thumbnails", zap.Int("count", len(emails)))

	renderer, err := s.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open renderer: %w", err)
	}
	defer renderer.Close()

	var generated, failed atomic.Int64
	workers := pool.NewWorkerPool(s.opts.Workers, len(emails), s.logger)
	workers.Start(ctx)
	for _, email := range emails {
		if !workers.Submit(ctx, func() {
			if s.generate(ctx, renderer, email) {
				generated.Add(1)
			} else {
				failed.Add(1)
			}
		}) {
			break
		}
	}
	workers.Stop()

	report := &ThumbnailReport{
		Processed: int(generated.Load() + failed.Load()),
		Generated: int(generated.Load()),
		Failed:    int(failed.Load()),
	}
	s.logger.Info("thumbnail batch complete",
		zap.Int("generated", report.Generated),
		zap.Int("failed", report.Failed),
	)
	return report, ctx.Err()
}

func (s *ThumbnailService) generate(ctx context.Context, renderer Renderer, email domain.Email) bool {
	start := time.Now()
	err := s.render(ctx, renderer, email)
	if s.observer != nil {
		s.observer.RecordThumbnail(time.Since(start), err)
	}
	if err != nil {
		s.logger.Warn("thumbnail failed", zap.Int64("email_id", email.ID), zap.Error(err))
		return false
	}
	s.logger.Debug("thumbnail saved", zap.Int64("email_id", email.ID))
	return true
}

func (s *ThumbnailService) render(ctx context.Context, renderer Renderer, email domain.Email) error {
	screenshot, err := renderer.Render(ctx, email.BodyHTML)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	thumb, err := thumbnail.Fit(screenshot, s.opts.Width, s.opts.Height)
	if err != nil {
		return err
	}
	return s.emails.SaveThumbnail(ctx, email.ID, thumb)
}

package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"mailgallery/backend/internal/config"
)

// idleQuietPeriod 没有进行中的请求并持续这么久视为网络空闲
const idleQuietPeriod = 500 * time.Millisecond

// ErrNetworkBusy 在超时之前网络一直没有空闲
var ErrNetworkBusy = errors.New("network did not become idle before timeout")

// Options 渲染参数
type Options struct {
	Width           int
	Height          int
	Settle          time.Duration
	NavigateTimeout time.Duration
	ChromePath      string
}

// OptionsFromConfig 从缩略图配置构造渲染参数
func OptionsFromConfig(c config.ThumbnailConfig) Options {
	return Options{
		Width:           c.Width,
		Height:          c.Height,
		Settle:          c.Settle,
		NavigateTimeout: c.NavigateTimeout,
		ChromePath:      c.ChromePath,
	}
}

// ChromeRenderer 使用无头 Chrome 渲染 HTML 并截图
//
// 一个实例对应一个浏览器进程，每次 Render 打开一个新标签页，可并发调用。
type ChromeRenderer struct {
	opts          Options
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
	log           *zap.Logger
}

// NewChromeRenderer 启动浏览器
func NewChromeRenderer(ctx context.Context, opts Options, log *zap.Logger) (*ChromeRenderer, error) {
	if log == nil {
		log = zap.NewNop()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.NoSandbox)
	if opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(log.Sugar().Debugf),
		chromedp.WithErrorf(log.Sugar().Warnf),
	)

	// 空的 Run 用于启动浏览器进程
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &ChromeRenderer{
		opts:          opts,
		browserCtx:    browserCtx,
		cancelAlloc:   cancelAlloc,
		cancelBrowser: cancelBrowser,
		log:           log,
	}, nil
}

// Render 在移动端视口中加载 HTML，等待网络空闲和额外的稳定时间后截取视口
func (r *ChromeRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	tracker := newIdleTracker()
	chromedp.ListenTarget(tabCtx, tracker.handle)

	var screenshot []byte
	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.EmulateViewport(int64(r.opts.Width), int64(r.opts.Height), chromedp.EmulateMobile),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			tracker.reset(time.Now())
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			waitCtx, cancel := context.WithTimeout(ctx, r.opts.NavigateTimeout)
			defer cancel()
			return tracker.wait(waitCtx, idleQuietPeriod)
		}),
		chromedp.Sleep(r.opts.Settle),
		chromedp.CaptureScreenshot(&screenshot),
	)
	if err != nil {
		return nil, err
	}
	return screenshot, nil
}

// Close 关闭浏览器
func (r *ChromeRenderer) Close() {
	r.cancelBrowser()
	r.cancelAlloc()
}

// idleTracker 统计进行中的网络请求
type idleTracker struct {
	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	last     time.Time
	now      func() time.Time
}

func newIdleTracker() *idleTracker {
	return &idleTracker{
		inflight: make(map[network.RequestID]struct{}),
		last:     time.Now(),
		now:      time.Now,
	}
}

func (t *idleTracker) handle(ev any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.inflight[e.RequestID] = struct{}{}
	case *network.EventLoadingFinished:
		delete(t.inflight, e.RequestID)
	case *network.EventLoadingFailed:
		delete(t.inflight, e.RequestID)
	default:
		return
	}
	t.last = t.now()
}

// reset 清空之前页面的请求，从 at 开始计算空闲时间
func (t *idleTracker) reset(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.inflight)
	t.last = at
}

func (t *idleTracker) idle(quiet time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) == 0 && t.now().Sub(t.last) >= quiet
}

// wait 阻塞到网络空闲或 ctx 结束
func (t *idleTracker) wait(ctx context.Context, quiet time.Duration) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if t.idle(quiet) {
			return nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrNetworkBusy
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

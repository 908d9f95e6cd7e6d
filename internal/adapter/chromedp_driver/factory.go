package chromedp_driver

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/user/places-extractor/internal/extractor"
)

// Config holds browser launch settings.
type Config struct {
	Headless bool
	ExecPath string
	// Proxies are handed to new browsers in rotation. Empty means direct.
	Proxies         []string
	UserAgents      []string
	PageLoadTimeout time.Duration
	ActionTimeout   time.Duration
	// MaxBrowsers caps concurrently running browsers. Zero means no cap.
	MaxBrowsers int
}

// Factory launches one Chrome process per driver.
type Factory struct {
	cfg   Config
	slots chan struct{}
	next  atomic.Uint64
}

var _ extractor.DriverFactory = (*Factory)(nil)

// NewFactory creates a new driver factory using chromedp.
func NewFactory(cfg Config) *Factory {
	if cfg.PageLoadTimeout <= 0 {
		cfg.PageLoadTimeout = 30 * time.Second
	}
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = 10 * time.Second
	}
	f := &Factory{cfg: cfg}
	if cfg.MaxBrowsers > 0 {
		f.slots = make(chan struct{}, cfg.MaxBrowsers)
	}
	return f
}

func (f *Factory) acquire(ctx context.Context) error {
	if f.slots == nil {
		return nil
	}
	select {
	case f.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Factory) release() {
	if f.slots != nil {
		<-f.slots
	}
}

// nextProxy returns the proxies sequentially, wrapping around.
func (f *Factory) nextProxy() string {
	if len(f.cfg.Proxies) == 0 {
		return ""
	}
	n := f.next.Add(1) - 1
	return f.cfg.Proxies[n%uint64(len(f.cfg.Proxies))]
}

func debugf(format string, args ...any) {
	slog.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
}

// NewDriver starts a browser and returns a driver positioned on a blank main
// tab. The browser outlives ctx; it is stopped by Driver.Release.
func (f *Factory) NewDriver(ctx context.Context) (extractor.PageDriver, error) {
	if err := f.acquire(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", extractor.ErrNoDriver, err)
	}

	ua := pickUserAgent(f.cfg.UserAgents)
	proxy := f.nextProxy()
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(f.cfg, ua, proxy)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(debugf),
		chromedp.WithErrorf(debugf),
	)

	d := &Driver{
		userAgent:     ua,
		loadTimeout:   f.cfg.PageLoadTimeout,
		actionTimeout: f.cfg.ActionTimeout,
		allocCancel:   allocCancel,
		onRelease:     f.release,
		tabs:          map[string]tab{extractor.MainContext: {ctx: browserCtx, cancel: browserCancel}},
		active:        extractor.MainContext,
	}

	stop := context.AfterFunc(ctx, browserCancel)
	err := chromedp.Run(browserCtx, d.prepare())
	stop()
	if err != nil {
		browserCancel()
		allocCancel()
		f.release()
		return nil, fmt.Errorf("%w: start browser: %w", extractor.ErrNoDriver, err)
	}

	slog.Debug("Browser started", "headless", f.cfg.Headless, "proxy", proxy != "")
	return d, nil
}

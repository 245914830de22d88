package collector

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeConfig configures page rendering for ChromeBrowser.
type ChromeConfig struct {
	URLTemplate       string // fmt template taking the escaped identifier
	PriceSelector     string
	NavigationTimeout time.Duration
	SelectorTimeout   time.Duration
	ExecPath          string
}

// ChromeBrowser launches a fresh headless Chrome for every session.
type ChromeBrowser struct {
	cfg ChromeConfig
}

// NewChromeBrowser creates a ChromeBrowser.
func NewChromeBrowser(cfg ChromeConfig) *ChromeBrowser {
	return &ChromeBrowser{cfg: cfg}
}

func (b *ChromeBrowser) Name() string { return "chrome" }

// NewSession starts a browser process bound to ctx; cancelling ctx kills it.
func (b *ChromeBrowser) NewSession(ctx context.Context) (Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
	)
	if b.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.cfg.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// The first Run starts the browser; it must use the un-timed tab context.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("launch chrome: %w", err)
	}
	return &chromeSession{
		cfg:         b.cfg,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
	}, nil
}

type chromeSession struct {
	cfg         ChromeConfig
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	closeOnce   sync.Once
	closeErr    error
}

func (s *chromeSession) ExtractPriceText(ctx context.Context, identifier string) (string, error) {
	stop := context.AfterFunc(ctx, s.tabCancel)
	defer stop()

	target := PageURL(s.cfg.URLTemplate, identifier)

	navCtx, cancel := context.WithTimeout(s.tabCtx, s.cfg.NavigationTimeout)
	err := chromedp.Run(navCtx, chromedp.Navigate(target))
	cancel()
	if err != nil {
		return "", classifyChromeError(fmt.Errorf("navigate %s: %w", target, err))
	}

	waitCtx, cancel := context.WithTimeout(s.tabCtx, s.cfg.SelectorTimeout)
	defer cancel()
	var text string
	if err := chromedp.Run(waitCtx,
		chromedp.WaitReady(s.cfg.PriceSelector, chromedp.ByQuery),
		chromedp.TextContent(s.cfg.PriceSelector, &text, chromedp.ByQuery),
	); err != nil {
		return "", classifyChromeError(fmt.Errorf("read %s: %w", s.cfg.PriceSelector, err))
	}
	return strings.TrimSpace(text), nil
}

func (s *chromeSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = chromedp.Cancel(s.tabCtx)
		s.tabCancel()
		s.allocCancel()
	})
	return s.closeErr
}

// classifyChromeError tags frame-detachment failures so the fetcher retries them.
func classifyChromeError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "frame was detached") || strings.Contains(msg, "frame detached") {
		return fmt.Errorf("%w: %v", ErrFrameDetached, err)
	}
	return err
}

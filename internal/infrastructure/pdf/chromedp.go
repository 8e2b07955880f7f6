package pdf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"cashdesk/internal/domain/documents"
	"cashdesk/pkg/logger"
)

const defaultTimeout = 30 * time.Second

// A4 in inches, margins 15 mm.
const (
	paperWidth  = 8.27
	paperHeight = 11.69
	margin      = 0.59
)

var _ documents.Renderer = (*ChromeRenderer)(nil)

// ChromeConfig configures the renderer.
type ChromeConfig struct {
	// RemoteURL is a DevTools websocket URL; empty launches a local browser.
	RemoteURL string
	Timeout   time.Duration
	NoSandbox bool
}

// ChromeRenderer renders HTML to PDF through the Chrome DevTools Protocol.
// One browser allocator is shared; each render gets its own tab.
type ChromeRenderer struct {
	timeout     time.Duration
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromeRenderer creates a renderer. The browser starts lazily on first render.
func NewChromeRenderer(cfg ChromeConfig) *ChromeRenderer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	r := &ChromeRenderer{timeout: timeout}
	if cfg.RemoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
		return r
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return r
}

// RenderPDF implements documents.Renderer.
func (r *ChromeRenderer) RenderPDF(ctx context.Context, p documents.Printable) ([]byte, error) {
	html, err := RenderHTML(p)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	tabCtx, tabCancel := chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.FromContext(ctx).Debugf(format, args...)
		}),
	)
	defer tabCancel()

	tabCtx, cancel := context.WithTimeout(tabCtx, r.timeout)
	defer cancel()

	// Propagate caller cancellation into the tab.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var pdf []byte
	err = chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paperWidth).
				WithPaperHeight(paperHeight).
				WithMarginTop(margin).
				WithMarginBottom(margin).
				WithMarginLeft(margin).
				WithMarginRight(margin).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		if errors.Is(tabCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("render %s: timed out after %v: %w", p.Number, r.timeout, err)
		}
		return nil, fmt.Errorf("render %s: %w", p.Number, err)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("render %s: empty pdf", p.Number)
	}

	logger.Debug(ctx, "pdf rendered",
		"number", p.Number,
		"bytes", len(pdf),
		"duration_ms", time.Since(start).Milliseconds())
	return pdf, nil
}

// Close shuts the browser down.
func (r *ChromeRenderer) Close() {
	if r.allocCancel != nil {
		r.allocCancel()
	}
}

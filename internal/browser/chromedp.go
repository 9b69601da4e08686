package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// settleDelay gives client-side rendering a moment to finish after the
// load event before the strict wait mode reports the page settled.
const settleDelay = 1500 * time.Millisecond

// ChromeBrowser drives a headless Chrome process via the DevTools
// protocol. It implements the Browser interface; each NewContext call
// opens a fresh tab so concurrent checks never share page state.
type ChromeBrowser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	rootCtx     context.Context
	rootCancel  context.CancelFunc
}

// ChromeConfig holds browser process configuration
type ChromeConfig struct {
	Headless  bool
	UserAgent string
	Width     int64
	Height    int64
}

// DefaultChromeConfig returns the default browser configuration
func DefaultChromeConfig() *ChromeConfig {
	return &ChromeConfig{
		Headless: true,
		Width:    1280,
		Height:   900,
	}
}

// NewChrome launches the browser process and verifies it responds
func NewChrome(ctx context.Context, cfg *ChromeConfig) (*ChromeBrowser, error) {
	if cfg == nil {
		cfg = DefaultChromeConfig()
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(int(cfg.Width), int(cfg.Height)),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	rootCtx, rootCancel := chromedp.NewContext(allocCtx)

	// Start the browser process now so a broken Chrome install fails at
	// startup instead of on the first check
	if err := chromedp.Run(rootCtx); err != nil {
		rootCancel()
		allocCancel()
		return nil, NewError(KindResource, "launch", fmt.Errorf("failed to start browser: %w", err))
	}

	return &ChromeBrowser{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		rootCtx:     rootCtx,
		rootCancel:  rootCancel,
	}, nil
}

// NewContext opens a new tab in the running browser
func (b *ChromeBrowser) NewContext(ctx context.Context) (Context, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.rootCtx)

	// Creating the chromedp context is lazy; run a no-op to open the tab
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, NewError(KindResource, "new-context", fmt.Errorf("failed to open tab: %w", err))
	}

	return &chromeContext{ctx: tabCtx, cancel: tabCancel}, nil
}

// Close shuts down the browser process
func (b *ChromeBrowser) Close() error {
	b.rootCancel()
	b.allocCancel()
	return nil
}

// chromeContext is one tab of the shared browser process
type chromeContext struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// run executes actions on the tab with the caller's deadline applied
func (c *chromeContext) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := c.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(c.ctx, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads the URL and returns the main document HTTP status.
// Failures come back tagged with their retry class.
func (c *chromeContext) Navigate(ctx context.Context, url string, mode WaitMode) (int, error) {
	runCtx := c.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(c.ctx, deadline)
		defer cancel()
	}

	resp, err := chromedp.RunResponse(runCtx, chromedp.Navigate(url))
	if err != nil {
		return 0, classifyNavigation("navigate", err)
	}

	status := 0
	if resp != nil {
		status = int(resp.Status)
	}

	if mode == WaitSettled {
		err = chromedp.Run(runCtx,
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(settleDelay),
		)
		if err != nil {
			return status, classifyNavigation("navigate-settle", err)
		}
	}
	return status, nil
}

func (c *chromeContext) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (c *chromeContext) WaitAttached(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (c *chromeContext) ScrollIntoView(ctx context.Context, selector string) error {
	return c.run(ctx, chromedp.ScrollIntoView(selector, chromedp.ByQuery))
}

// Text returns the inner text of the first match with whitespace collapsed
func (c *chromeContext) Text(ctx context.Context, selector string) (string, error) {
	var text string
	if err := c.run(ctx, chromedp.Text(selector, &text, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read text of %q: %w", selector, err)
	}
	return strings.Join(strings.Fields(text), " "), nil
}

func (c *chromeContext) HTML(ctx context.Context) (string, error) {
	var html string
	if err := c.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read document HTML: %w", err)
	}
	return html, nil
}

func (c *chromeContext) Exists(ctx context.Context, selector string) (bool, error) {
	var count int
	err := c.run(ctx, chromedp.Evaluate(
		fmt.Sprintf(`document.querySelectorAll(%q).length`, selector), &count))
	if err != nil {
		return false, fmt.Errorf("failed to probe selector %q: %w", selector, err)
	}
	return count > 0, nil
}

// Screenshot captures a full-page PNG at full quality
func (c *chromeContext) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := c.run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			// Reset any device metrics a previous capture may have left
			return emulation.ClearDeviceMetricsOverride().Do(ctx)
		}),
		chromedp.FullScreenshot(&buf, 100),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

func (c *chromeContext) Click(ctx context.Context, selector string) error {
	return c.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (c *chromeContext) Type(ctx context.Context, selector, text string) error {
	return c.run(ctx, chromedp.SendKeys(selector, text, chromedp.ByQuery))
}

// PressKey sends a named key (enter, tab, escape, arrow keys) or a
// literal character to the focused element
func (c *chromeContext) PressKey(ctx context.Context, key string) error {
	code, ok := namedKeys[strings.ToLower(key)]
	if !ok {
		code = key
	}
	return c.run(ctx, chromedp.KeyEvent(code))
}

var namedKeys = map[string]string{
	"enter":     kb.Enter,
	"tab":       kb.Tab,
	"escape":    kb.Escape,
	"backspace": kb.Backspace,
	"arrowdown": kb.ArrowDown,
	"arrowup":   kb.ArrowUp,
	"pagedown":  kb.PageDown,
	"end":       kb.End,
}

func (c *chromeContext) ScrollToBottom(ctx context.Context) error {
	return c.run(ctx, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
}

// Alive probes the tab with a trivial evaluation under a short deadline
func (c *chromeContext) Alive(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	var one int
	return c.run(probeCtx, chromedp.Evaluate(`1`, &one)) == nil
}

func (c *chromeContext) Close() error {
	c.cancel()
	return nil
}

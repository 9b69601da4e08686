// Package checker implements the per-monitor check pipeline: navigation
// with retry, selector resolution with AI-assisted self-healing, content
// extraction, screenshot capture, change detection, persistence, and
// notification decision. It also owns the failure/cooldown policy the
// scheduler consumes.
package checker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pagewatch/pagewatch/internal/ai"
	"github.com/pagewatch/pagewatch/internal/browser"
	"github.com/pagewatch/pagewatch/internal/detect"
	"github.com/pagewatch/pagewatch/internal/notify"
	"github.com/pagewatch/pagewatch/internal/storage"
	"github.com/pagewatch/pagewatch/internal/types"
)

// ErrCheckInFlight is returned when a check for the same monitor is
// already running (scheduled and manual checks racing)
var ErrCheckInFlight = errors.New("a check for this monitor is already in flight")

// Healer is the AI selector-repair collaborator. A nil Healer disables
// self-healing; repair failures degrade to "selector not found".
type Healer interface {
	RepairSelector(ctx context.Context, req *ai.RepairRequest) (string, error)
}

// Summarizer is the AI summarization collaborator. A nil Summarizer
// disables summaries; summarization failures are soft and never fail a
// check.
type Summarizer interface {
	SummarizeText(ctx context.Context, oldText, newText, userPrompt string) (*ai.Judgment, error)
	CompareScreenshots(ctx context.Context, oldPNG, newPNG []byte, userPrompt string) (*ai.Judgment, error)
}

// Config holds pipeline tuning knobs
type Config struct {
	NavRetries      int           // looser-wait navigation retries after the strict attempt (default: 3)
	NavBackoff      time.Duration // initial navigation retry backoff (default: 1s)
	SelectorWait    time.Duration // per-strategy selector wait (default: 10s)
	ExtractAttempts int           // extraction attempts on empty content (default: 3)
	ExtractPause    time.Duration // pause between extraction attempts (default: 1.5s)
	VisualTolerance uint8         // per-channel pixel tolerance (default: detect.DefaultTolerance)
	HistoryKeep     int           // check records kept per monitor, 0 = unlimited (default: 100)
	HostMinInterval time.Duration // minimum gap between navigations to the same host (default: 2s)
}

// DefaultConfig returns the default pipeline configuration
func DefaultConfig() *Config {
	return &Config{
		NavRetries:      3,
		NavBackoff:      time.Second,
		SelectorWait:    10 * time.Second,
		ExtractAttempts: 3,
		ExtractPause:    1500 * time.Millisecond,
		VisualTolerance: detect.DefaultTolerance,
		HistoryKeep:     100,
		HostMinInterval: 2 * time.Second,
	}
}

// Pipeline executes checks. One Pipeline instance serves all monitors;
// per-monitor exclusivity comes from the in-flight guard, and per-host
// politeness from the rate limiter map.
type Pipeline struct {
	store      storage.Storage
	pool       *browser.Pool
	healer     Healer
	summarizer Summarizer
	router     *notify.Router
	dispatcher notify.Dispatcher
	artifacts  *ArtifactStore
	config     *Config
	guard      *inflightGuard

	hostMu       sync.Mutex
	hostLimiters map[string]*rate.Limiter
}

// NewPipeline creates a check pipeline. healer and summarizer may be nil
// to run without AI assistance.
func NewPipeline(store storage.Storage, pool *browser.Pool, artifacts *ArtifactStore,
	healer Healer, summarizer Summarizer, dispatcher notify.Dispatcher, cfg *Config) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if dispatcher == nil {
		dispatcher = &notify.LogDispatcher{}
	}
	return &Pipeline{
		store:        store,
		pool:         pool,
		healer:       healer,
		summarizer:   summarizer,
		router:       notify.NewRouter(),
		dispatcher:   dispatcher,
		artifacts:    artifacts,
		config:       cfg,
		guard:        newInflightGuard(),
		hostLimiters: make(map[string]*rate.Limiter),
	}
}

// Run executes one check for the monitor. On success it returns the
// persisted record; on failure it returns the persisted error record
// together with the cause. ErrCheckInFlight is returned without any
// record when another check holds the monitor.
func (p *Pipeline) Run(ctx context.Context, m *types.Monitor) (*types.CheckRecord, error) {
	if !p.guard.tryAcquire(m.ID) {
		return nil, ErrCheckInFlight
	}
	defer p.guard.release(m.ID)

	fmt.Printf("Pipeline: checking %s (%s)\n", m.ID, m.URL)
	return p.check(ctx, m)
}

func (p *Pipeline) check(ctx context.Context, m *types.Monitor) (*types.CheckRecord, error) {
	p.waitHost(ctx, m.Host())

	lease, err := p.pool.Acquire(ctx)
	if err != nil {
		return p.fail(ctx, m, 0, err)
	}
	defer lease.Release()
	bctx := lease.Context

	// NavigateRetry
	httpStatus, err := p.navigate(ctx, bctx, m.URL)
	if err != nil {
		return p.fail(ctx, m, httpStatus, err)
	}

	// Scenario steps run before extraction; failures are logged, not fatal
	if len(m.Scenario) > 0 {
		runScenario(ctx, bctx, m.ID, m.Scenario)
	}

	// SelectorResolve, with AI self-heal as the last resort
	selector, healed, err := p.resolveSelector(ctx, bctx, m)
	if err != nil {
		return p.fail(ctx, m, httpStatus, err)
	}

	// ContentExtract
	value, err := p.extract(ctx, bctx, selector)
	if err != nil {
		return p.fail(ctx, m, httpStatus, err)
	}

	// ScreenshotCapture: always full-page, independent of monitor kind,
	// for visual diffing and forensic history alike
	shot, err := bctx.Screenshot(ctx)
	if err != nil {
		return p.fail(ctx, m, httpStatus, err)
	}

	outcome, err := p.detectChange(ctx, m, value, shot)
	if err != nil {
		return p.fail(ctx, m, httpStatus, err)
	}

	return p.complete(ctx, m, value, shot, httpStatus, healed, outcome)
}

// outcome collects what change detection decided for one check
type outcome struct {
	baseline    bool
	changed     bool
	diffText    string
	diffImage   []byte
	summary     string
	significant bool
}

func (p *Pipeline) detectChange(ctx context.Context, m *types.Monitor, value string, shot []byte) (*outcome, error) {
	o := &outcome{baseline: m.LastCheck == nil}
	if o.baseline {
		// First observation establishes the baseline only
		return o, nil
	}

	switch m.Kind {
	case types.KindVisual:
		if err := p.detectVisual(ctx, m, shot, o); err != nil {
			return nil, err
		}
	default:
		p.detectText(ctx, m, value, o)
	}

	// The ai_focus rule needs a summary even when AI-only filtering is
	// off; fetch one lazily so other rule modes never pay for it
	if o.changed && o.summary == "" && m.Notify.Mode == types.NotifyAIFocus && p.summarizer != nil && m.Kind == types.KindText {
		if j, err := p.summarizer.SummarizeText(ctx, m.LastValue, value, m.AIPrompt); err != nil {
			fmt.Fprintf(os.Stderr, "Pipeline: summarize failed for %s (continuing without summary): %v\n", m.ID, err)
		} else {
			o.summary = j.Summary
			o.significant = j.Significant
		}
	}
	return o, nil
}

func (p *Pipeline) detectText(ctx context.Context, m *types.Monitor, value string, o *outcome) {
	if !detect.TextChanged(m.LastValue, value) {
		return
	}
	candidate := true

	// AI-only text mode: the summarizer filters noise out of candidates
	if m.AIOnly && p.summarizer != nil {
		j, err := p.summarizer.SummarizeText(ctx, m.LastValue, value, m.AIPrompt)
		if err != nil {
			// Soft failure: keep the raw candidate rather than lose a change
			fmt.Fprintf(os.Stderr, "Pipeline: summarize failed for %s (keeping raw change): %v\n", m.ID, err)
		} else {
			o.summary = j.Summary
			o.significant = j.Significant
			if !j.Significant {
				candidate = false
			}
		}
	}

	if candidate {
		o.changed = true
		o.diffText = detect.DiffText(m.LastValue, value)
	}
}

func (p *Pipeline) detectVisual(ctx context.Context, m *types.Monitor, shot []byte, o *outcome) error {
	if m.LastScreenshot == "" {
		return nil
	}
	prev, err := p.artifacts.Read(m.LastScreenshot)
	if err != nil {
		// The previous artifact is gone; re-baseline rather than fail
		fmt.Fprintf(os.Stderr, "Pipeline: previous screenshot missing for %s, re-baselining: %v\n", m.ID, err)
		return nil
	}

	// AI-only visual mode: the significance judgment gates whether the
	// pixel diff is computed and stored at all
	if m.AIOnly && p.summarizer != nil {
		j, err := p.summarizer.CompareScreenshots(ctx, prev, shot, m.AIPrompt)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Pipeline: screenshot comparison failed for %s (falling back to pixel diff): %v\n", m.ID, err)
		} else {
			o.summary = j.Summary
			o.significant = j.Significant
			if !j.Significant {
				return nil
			}
		}
	}

	result, err := detect.CompareImages(prev, shot, p.config.VisualTolerance)
	if err != nil {
		return fmt.Errorf("visual comparison failed: %w", err)
	}
	if result.Changed() {
		o.changed = true
		o.diffImage = result.DiffImage
		fmt.Printf("Pipeline: %s visual diff: %d/%d pixels differ\n", m.ID, result.DiffPixels, result.TotalPixels)

		// The ai_focus rule needs a summary even when AI-only filtering
		// is off; the text path fetches one in detectChange, here the
		// previous screenshot is still in scope for the comparison
		if o.summary == "" && m.Notify.Mode == types.NotifyAIFocus && p.summarizer != nil {
			if j, err := p.summarizer.CompareScreenshots(ctx, prev, shot, m.AIPrompt); err != nil {
				fmt.Fprintf(os.Stderr, "Pipeline: screenshot comparison failed for %s (continuing without summary): %v\n", m.ID, err)
			} else {
				o.summary = j.Summary
				o.significant = j.Significant
			}
		}
	}
	return nil
}

// complete persists artifacts, the check record, and the monitor result,
// then routes notifications and cleans up superseded artifacts.
func (p *Pipeline) complete(ctx context.Context, m *types.Monitor, value string, shot []byte,
	httpStatus int, healed *string, o *outcome) (*types.CheckRecord, error) {

	shotPath, err := p.artifacts.SaveScreenshot(m.ID, shot)
	if err != nil {
		return p.fail(ctx, m, httpStatus, err)
	}

	var diffPath string
	if len(o.diffImage) > 0 {
		diffPath, err = p.artifacts.SaveDiffImage(m.ID, o.diffImage)
		if err != nil {
			return p.fail(ctx, m, httpStatus, err)
		}
	}

	status := types.StatusUnchanged
	if o.changed && !o.baseline {
		status = types.StatusChanged
	}

	rec := &types.CheckRecord{
		MonitorID:  m.ID,
		Status:     status,
		Value:      value,
		Screenshot: shotPath,
		DiffImage:  diffPath,
		DiffText:   o.diffText,
		Summary:    o.summary,
		CreatedAt:  time.Now().UTC(),
	}
	if httpStatus > 0 {
		s := httpStatus
		rec.HTTPStatus = &s
	}
	if err := p.store.RecordCheck(ctx, rec); err != nil {
		return p.fail(ctx, m, httpStatus, fmt.Errorf("failed to persist check record: %w", err))
	}

	// Any non-error completion resets the failure counter
	result := &types.CheckResult{
		LastCheck:           rec.CreatedAt,
		LastValue:           &value,
		LastScreenshot:      &shotPath,
		ConsecutiveFailures: 0,
		Selector:            healed,
	}
	if err := p.store.ApplyCheckResult(ctx, m.ID, result); err != nil {
		return rec, fmt.Errorf("failed to apply check result: %w", err)
	}

	p.dispatch(ctx, &notify.ChangeContext{
		Monitor:       m,
		PreviousValue: m.LastValue,
		CurrentValue:  value,
		Changed:       o.changed,
		Baseline:      o.baseline,
		Summary:       o.summary,
		Significant:   o.significant,
		HTTPStatus:    httpStatus,
		DiffText:      o.diffText,
		DiffImagePath: diffPath,
	})

	// Cleanup: the superseded screenshot goes regardless of the change
	// outcome so storage stays bounded
	if m.LastScreenshot != "" && m.LastScreenshot != shotPath {
		if err := p.artifacts.Delete(m.LastScreenshot); err != nil {
			fmt.Fprintf(os.Stderr, "Pipeline: failed to delete superseded screenshot for %s: %v\n", m.ID, err)
		}
	}
	if p.config.HistoryKeep > 0 {
		if _, err := p.store.PruneChecks(ctx, m.ID, p.config.HistoryKeep); err != nil {
			fmt.Fprintf(os.Stderr, "Pipeline: failed to prune history for %s: %v\n", m.ID, err)
		}
	}

	fmt.Printf("Pipeline: %s completed: %s\n", m.ID, status)
	return rec, nil
}

// fail records an error outcome. Persistence runs on a fresh context so
// a check abandoned at its overall budget still lands in history and
// still feeds the failure counter.
func (p *Pipeline) fail(ctx context.Context, m *types.Monitor, httpStatus int, cause error) (*types.CheckRecord, error) {
	kind := browser.KindOf(cause)
	if ctx.Err() != nil && errors.Is(cause, context.DeadlineExceeded) {
		kind = browser.KindTimeout
		cause = fmt.Errorf("check exceeded its time budget: %w", cause)
	}
	fmt.Fprintf(os.Stderr, "Pipeline: %s failed (%s): %v\n", m.ID, kind, cause)

	persistCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rec := &types.CheckRecord{
		MonitorID: m.ID,
		Status:    types.StatusError,
		Error:     cause.Error(),
		CreatedAt: time.Now().UTC(),
	}
	if httpStatus > 0 {
		s := httpStatus
		rec.HTTPStatus = &s
	}
	if err := p.store.RecordCheck(persistCtx, rec); err != nil {
		fmt.Fprintf(os.Stderr, "Pipeline: failed to persist error record for %s: %v\n", m.ID, err)
	}

	result := &types.CheckResult{
		LastCheck:           rec.CreatedAt,
		ConsecutiveFailures: m.ConsecutiveFailures + 1,
	}
	if err := p.store.ApplyCheckResult(persistCtx, m.ID, result); err != nil {
		fmt.Fprintf(os.Stderr, "Pipeline: failed to apply failure result for %s: %v\n", m.ID, err)
	}

	// A failed check can still carry a downtime signal
	if httpStatus >= 400 {
		p.dispatch(persistCtx, &notify.ChangeContext{Monitor: m, HTTPStatus: httpStatus})
	}
	return rec, cause
}

func (p *Pipeline) dispatch(ctx context.Context, cc *notify.ChangeContext) {
	for _, n := range p.router.Evaluate(cc) {
		p.dispatcher.Dispatch(ctx, n)
	}
}

// navigate attempts the strict wait condition first, then retries with
// the minimal commit condition under exponential backoff. Only errors
// tagged transient at origin are retried.
func (p *Pipeline) navigate(ctx context.Context, bctx browser.Context, url string) (int, error) {
	mode := browser.WaitSettled
	backoff := p.config.NavBackoff

	var lastStatus int
	var lastErr error
	for attempt := 0; attempt <= p.config.NavRetries; attempt++ {
		status, err := bctx.Navigate(ctx, url, mode)
		if err == nil {
			if attempt > 0 {
				fmt.Printf("Pipeline: navigation succeeded on attempt %d\n", attempt+1)
			}
			return status, nil
		}
		lastStatus, lastErr = status, err

		if !browser.IsTransient(err) {
			return status, err
		}
		if attempt == p.config.NavRetries {
			break
		}

		// Loosen the wait condition for every retry
		mode = browser.WaitCommit
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return status, browser.NewError(browser.KindTimeout, "navigate", ctx.Err())
		}
	}
	return lastStatus, fmt.Errorf("navigation failed after %d attempts: %w", p.config.NavRetries+1, lastErr)
}

// resolveSelector waits for the target to be visible, falls back to an
// attached-but-hidden wait plus scroll-into-view, and finally consults
// the AI repair collaborator. A suggested replacement is committed only
// after it validates against the live page.
func (p *Pipeline) resolveSelector(ctx context.Context, bctx browser.Context, m *types.Monitor) (string, *string, error) {
	if err := bctx.WaitVisible(ctx, m.Selector, p.config.SelectorWait); err == nil {
		return m.Selector, nil, nil
	}

	if err := bctx.WaitAttached(ctx, m.Selector, p.config.SelectorWait); err == nil {
		if err := bctx.ScrollIntoView(ctx, m.Selector); err != nil {
			fmt.Fprintf(os.Stderr, "Pipeline: scroll-into-view failed for %s: %v\n", m.ID, err)
		}
		return m.Selector, nil, nil
	}

	notFound := browser.NewError(browser.KindPermanent, "selector",
		fmt.Errorf("selector %q not found on page", m.Selector))

	if p.healer == nil {
		return "", nil, notFound
	}

	html, err := bctx.HTML(ctx)
	if err != nil {
		return "", nil, notFound
	}

	suggestion, err := p.healer.RepairSelector(ctx, &ai.RepairRequest{
		DOM:         html,
		OldSelector: m.Selector,
		LastValue:   m.LastValue,
		Hint:        m.SelectorHint,
	})
	if err != nil {
		// AI unavailability degrades to "no healing", never fails harder
		fmt.Fprintf(os.Stderr, "Pipeline: selector repair failed for %s: %v\n", m.ID, err)
		return "", nil, notFound
	}
	suggestion = strings.TrimSpace(suggestion)
	if suggestion == "" || suggestion == m.Selector {
		return "", nil, notFound
	}

	// Validate before committing; an unvalidated suggestion is discarded
	exists, err := bctx.Exists(ctx, suggestion)
	if err != nil || !exists {
		fmt.Fprintf(os.Stderr, "Pipeline: discarding unvalidated selector suggestion %q for %s\n", suggestion, m.ID)
		return "", nil, notFound
	}

	fmt.Printf("Pipeline: self-healed selector for %s: %q -> %q\n", m.ID, m.Selector, suggestion)
	return suggestion, &suggestion, nil
}

// extract reads the normalized inner text, retrying briefly when the
// content comes back empty because rendering has not finished
func (p *Pipeline) extract(ctx context.Context, bctx browser.Context, selector string) (string, error) {
	attempts := p.config.ExtractAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 1; ; attempt++ {
		value, err := bctx.Text(ctx, selector)
		if err != nil {
			return "", fmt.Errorf("extraction failed: %w", err)
		}
		if strings.TrimSpace(value) != "" || attempt >= attempts {
			return value, nil
		}
		select {
		case <-time.After(p.config.ExtractPause):
		case <-ctx.Done():
			return "", browser.NewError(browser.KindTimeout, "extract", ctx.Err())
		}
	}
}

// waitHost enforces the per-host politeness gap before navigation
func (p *Pipeline) waitHost(ctx context.Context, host string) {
	if host == "" || p.config.HostMinInterval <= 0 {
		return
	}
	p.hostMu.Lock()
	lim, ok := p.hostLimiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Every(p.config.HostMinInterval), 1)
		p.hostLimiters[host] = lim
	}
	p.hostMu.Unlock()

	if err := lim.Wait(ctx); err != nil {
		// The expired context will surface at navigation
		return
	}
}

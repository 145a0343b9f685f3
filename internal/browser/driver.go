// Package browser wraps a headed/headless chromium behind the minimal
// Facade the agent loop consumes.
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
)

const (
	consentClickTimeoutMs = 800

	// Attempts for page operations that can race a navigation.
	navRaceRetries = 3
)

// Selectors tried after a navigation when auto-consent is on. The two
// ids are the Google and Bing consent buttons.
var consentSelectors = []string{
	"#L2AGLb",
	"#bnp_btn_accept",
	"button:has-text('Accetta')",
	"button:has-text('Accept')",
	"button:has-text('Agree')",
	"button:has-text('I agree')",
	"form[action*='consent'] button",
	"button[id*='accept']",
	"button[id*='consent']",
}

// Options configures the playwright driver.
type Options struct {
	TimeoutMs     int
	AutoConsent   bool
	Headless      bool
	ViewOnly      bool
	ActionDelayMs int
}

// Driver drives a chromium page via playwright. It owns the playwright
// lifecycle the way the launcher owns it: Start then Stop exactly once.
type Driver struct {
	opts   Options
	logger zerolog.Logger

	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page
}

// NewDriver returns an unstarted Driver.
func NewDriver(opts Options, logger zerolog.Logger) *Driver {
	if opts.TimeoutMs <= 0 {
		opts.TimeoutMs = 30000
	}
	return &Driver{opts: opts, logger: logger}
}

func (d *Driver) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(d.opts.Headless),
		Args: []string{
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return fmt.Errorf("launch chromium: %w", err)
	}
	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(true),
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return fmt.Errorf("new context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return fmt.Errorf("new page: %w", err)
	}
	page.SetDefaultTimeout(float64(d.opts.TimeoutMs))
	if err := page.AddInitScript(playwright.Script{Content: playwright.String(jsHideWebdriver)}); err != nil {
		d.logger.Debug().Err(err).Msg("install stealth script")
	}
	if err := page.AddInitScript(playwright.Script{Content: playwright.String(jsInstallOverlay)}); err != nil {
		d.logger.Debug().Err(err).Msg("install overlay script")
	}

	d.pw = pw
	d.browser = browser
	d.bctx = bctx
	d.page = page
	return nil
}

func (d *Driver) Stop(ctx context.Context) error {
	_ = ctx
	if d.bctx != nil {
		_ = d.bctx.Close()
	}
	if d.browser != nil {
		_ = d.browser.Close()
	}
	if d.pw != nil {
		return d.pw.Stop()
	}
	return nil
}

func (d *Driver) ViewOnly() bool { return d.opts.ViewOnly }

func (d *Driver) Headless() bool { return d.opts.Headless }

func (d *Driver) ActionDelay() time.Duration {
	return time.Duration(d.opts.ActionDelayMs) * time.Millisecond
}

func (d *Driver) URL(ctx context.Context) string {
	if d.page == nil || ctx.Err() != nil {
		return ""
	}
	return d.page.URL()
}

func (d *Driver) Title(ctx context.Context) string {
	if d.page == nil || ctx.Err() != nil {
		return ""
	}
	title, err := d.page.Title()
	if err != nil {
		return ""
	}
	return title
}

func (d *Driver) ExtractText(ctx context.Context, budget int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if budget <= 0 {
		budget = 1500
	}
	// Extraction races the previous step's navigation; retry when the
	// execution context was torn down mid-evaluate.
	var lastErr error
	for attempt := 0; attempt < navRaceRetries; attempt++ {
		val, err := d.page.Evaluate(jsExtractText, budget)
		if err == nil {
			text, _ := val.(string)
			if len(text) > budget {
				text = text[:budget]
			}
			return text, nil
		}
		lastErr = err
		if !isNavRace(err) {
			break
		}
		d.awaitNavSettled()
	}
	return "", wrap(lastErr)
}

func (d *Driver) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}
	if d.opts.ViewOnly {
		return nil
	}
	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return wrap(err)
	}
	if d.opts.AutoConsent && strings.Contains(url, "google.") {
		if d.clickConsent() {
			d.page.WaitForTimeout(400)
		}
	}
	return nil
}

// clickConsent tries the known consent selectors with a short timeout
// each; a miss is normal.
func (d *Driver) clickConsent() bool {
	for _, sel := range consentSelectors {
		loc := d.page.Locator(sel).First()
		count, err := d.page.Locator(sel).Count()
		if err != nil || count == 0 {
			continue
		}
		if err := loc.Click(playwright.LocatorClickOptions{
			Timeout: playwright.Float(consentClickTimeoutMs),
		}); err == nil {
			d.logger.Debug().Str("selector", sel).Msg("consent clicked")
			return true
		}
	}
	return false
}

func (d *Driver) Back(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.opts.ViewOnly {
		return nil
	}
	_, err := d.page.GoBack(playwright.PageGoBackOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	return wrap(err)
}

func (d *Driver) Scroll(ctx context.Context, dy int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.opts.ViewOnly {
		return nil
	}
	_, err := d.page.Evaluate(fmt.Sprintf("window.scrollBy(0,%d);", dy))
	return wrap(err)
}

func (d *Driver) Press(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.opts.ViewOnly {
		return nil
	}
	return wrap(d.page.Keyboard().Press(key))
}

func (d *Driver) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Same navigation race as ExtractText: retry when the context was
	// destroyed mid-capture.
	var lastErr error
	for attempt := 0; attempt < navRaceRetries; attempt++ {
		_, err := d.page.Screenshot(playwright.PageScreenshotOptions{
			Path: playwright.String(path),
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if !isNavRace(err) {
			break
		}
		d.awaitNavSettled()
	}
	return wrap(lastErr)
}

// isNavRace reports whether an error is the transient "page navigated
// away under us" failure that a short wait recovers from.
func isNavRace(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Execution context was destroyed") ||
		strings.Contains(msg, "most likely because of a navigation")
}

func (d *Driver) awaitNavSettled() {
	_ = d.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateDomcontentloaded,
	})
	d.page.WaitForTimeout(100)
}

func (d *Driver) BBoxCenter(ctx context.Context, selector string) (*BBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loc := d.page.Locator(selector).First()
	count, err := d.page.Locator(selector).Count()
	if err != nil {
		return nil, wrap(err)
	}
	if count == 0 {
		return nil, nil
	}
	box, err := loc.BoundingBox()
	if err != nil || box == nil {
		return nil, nil
	}
	minor := box.Width
	if box.Height < minor {
		minor = box.Height
	}
	return &BBox{
		CX: box.X + box.Width/2,
		CY: box.Y + box.Height/2,
		W:  minor,
	}, nil
}

func (d *Driver) MoveCursor(ctx context.Context, x, y float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.opts.ViewOnly {
		return nil
	}
	_, _ = d.page.Evaluate(fmt.Sprintf("window.__navMoveCursor && window.__navMoveCursor(%f,%f);", x, y))
	return wrap(d.page.Mouse().Move(x, y))
}

func (d *Driver) ClickAt(ctx context.Context, x, y float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.opts.ViewOnly {
		return nil
	}
	_, _ = d.page.Evaluate(fmt.Sprintf("window.__navMoveCursor && window.__navMoveCursor(%f,%f);", x, y))
	return wrap(d.page.Mouse().Click(x, y))
}

func (d *Driver) TypeInto(ctx context.Context, selector, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.opts.ViewOnly {
		return nil
	}
	loc := d.page.Locator(selector).First()
	if err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateVisible,
	}); err != nil {
		return wrap(err)
	}
	return wrap(loc.Fill(text))
}

func (d *Driver) SetStatus(ctx context.Context, msg string) {
	if d.page == nil || d.opts.ViewOnly || ctx.Err() != nil {
		return
	}
	safe := strings.ReplaceAll(msg, `\`, ``)
	safe = strings.ReplaceAll(safe, "'", `\'`)
	_, _ = d.page.Evaluate(fmt.Sprintf("window.__navSetStatus && window.__navSetStatus('%s');", safe))
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("playwright: %w", err)
}

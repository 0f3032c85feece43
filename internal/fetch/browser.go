// Package fetch owns the shared headless browser session and the static
// HTTP client the adapters fetch through. One browser process serves the
// whole run; every fetch opens its own incognito context and page and
// disposes of both on completion, success or failure.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/futterwatch/futterwatch/internal/config"
)

// Session is the run-scoped browser handle shared by all adapters. The
// browser itself is only read for context creation; each page is exclusively
// owned by the fetch that opened it.
type Session struct {
	browser *rod.Browser
	cfg     *config.Config
	logger  *slog.Logger
}

// NewSession launches a Chromium instance and connects to it.
func NewSession(cfg *config.Config, logger *slog.Logger) (*Session, error) {
	l := launcher.New().
		Headless(cfg.Browser.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled").
		Set("lang", cfg.Browser.Locale)

	launchURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	logger.Info("browser session ready",
		"headless", cfg.Browser.Headless,
		"locale", cfg.Browser.Locale,
	)

	return &Session{
		browser: browser,
		cfg:     cfg,
		logger:  logger.With("component", "browser_session"),
	}, nil
}

// Close shuts down the browser process.
func (s *Session) Close() error {
	if s.browser != nil {
		return s.browser.Close()
	}
	return nil
}

// newPage opens a fresh incognito context with stealth patches, a realistic
// User-Agent and the configured locale. The returned cleanup closes the page
// and disposes the browsing context; it must run on every exit path, or
// Chromium accumulates one context (cookies, caches, renderer state) per
// fetch for the lifetime of the session.
func (s *Session) newPage(ctx context.Context) (*rod.Page, func(), error) {
	incognito, err := s.browser.Incognito()
	if err != nil {
		return nil, nil, fmt.Errorf("incognito context: %w", err)
	}

	page, err := stealth.Page(incognito)
	if err != nil {
		return nil, nil, fmt.Errorf("stealth page: %w", err)
	}
	page = page.Context(ctx)

	err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      s.cfg.Browser.UserAgent,
		AcceptLanguage: s.cfg.Browser.Locale + "," + s.cfg.Browser.Locale[:2] + ";q=0.9",
	})
	if err != nil {
		s.logger.Warn("failed to set user agent", "error", err)
	}

	cleanup := func() {
		_ = page.Close()
		_ = proto.TargetDisposeBrowserContext{
			BrowserContextID: incognito.BrowserContextID,
		}.Call(incognito)
	}
	return page, cleanup, nil
}

// navigate performs the politeness delay, loads the URL, and waits for the
// tile selector (falling back to the secondary selector), then runs the
// configured scroll-and-wait cycles so lazy tiles materialize.
func (s *Session) navigate(ctx context.Context, page *rod.Page, url, tileSelector, fallbackSelector string) error {
	if err := Delay(ctx, s.cfg.Scraper.RequestDelayMin, s.cfg.Scraper.RequestDelayMax); err != nil {
		return err
	}

	if err := page.Timeout(s.cfg.Scraper.NavigationTimeout).Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.Timeout(s.cfg.Scraper.NavigationTimeout).WaitStable(300 * time.Millisecond); err != nil {
		s.logger.Debug("page stability timeout, continuing", "url", url)
	}

	if _, err := page.Timeout(s.cfg.Scraper.TileWaitTimeout).Element(tileSelector); err != nil {
		if fallbackSelector == "" {
			return fmt.Errorf("tile selector %q: %w", tileSelector, err)
		}
		if _, err := page.Timeout(s.cfg.Scraper.FallbackWaitTimeout).Element(fallbackSelector); err != nil {
			return fmt.Errorf("tile selectors %q, %q: %w", tileSelector, fallbackSelector, err)
		}
	}

	for i := 0; i < s.cfg.Scraper.ScrollCycles; i++ {
		if _, err := page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
			s.logger.Debug("scroll eval failed", "url", url, "error", err)
			break
		}
		if err := sleep(ctx, s.cfg.Scraper.ScrollSettle); err != nil {
			return err
		}
	}
	return nil
}

// HTML renders a page and returns its final DOM as HTML. A missing tile
// selector is reported as an error; callers treat it as "no data" for that
// page, not as a run failure.
func (s *Session) HTML(ctx context.Context, url, tileSelector, fallbackSelector string) (string, error) {
	page, cleanup, err := s.newPage(ctx)
	if err != nil {
		return "", err
	}
	defer cleanup()

	if err := s.navigate(ctx, page, url, tileSelector, fallbackSelector); err != nil {
		return "", err
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("read html for %s: %w", url, err)
	}
	return html, nil
}

// EvalJSON renders a page and evaluates js (a zero-argument function
// returning a JSON string) in it. Used where the data lives behind shadow
// roots that outer-DOM selectors cannot reach.
func (s *Session) EvalJSON(ctx context.Context, url, tileSelector, js string) (string, error) {
	page, cleanup, err := s.newPage(ctx)
	if err != nil {
		return "", err
	}
	defer cleanup()

	if err := s.navigate(ctx, page, url, tileSelector, ""); err != nil {
		return "", err
	}

	res, err := page.Eval(js)
	if err != nil {
		return "", fmt.Errorf("eval on %s: %w", url, err)
	}
	return res.Value.Str(), nil
}

// Delay sleeps a uniformly random duration in [min, max], honoring ctx.
func Delay(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min)))
	}
	return sleep(ctx, d)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

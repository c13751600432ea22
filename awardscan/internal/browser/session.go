// Package browser owns the single Chrome session a scan runs in: launch (or
// attach), stealth tab, navigation and page capture, and teardown.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Config configures a Session.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of an already running Chrome.
	// Empty launches a local one.
	RemoteURL string

	// Bin overrides the Chrome binary. Empty lets rod locate or download one.
	Bin string

	// Headless hides the window. The login step needs a visible window,
	// so the default is false.
	Headless bool

	// UserDataDir keeps cookies and the airline login between runs.
	UserDataDir string

	// XvfbDisplay starts a virtual display for headful mode on hosts
	// without X, e.g. ":99". Empty uses the current display.
	XvfbDisplay string

	// XvfbBin is the virtual display server. Default: Xvfb.
	XvfbBin string

	// BlockResources lists resource types to drop (images, fonts, media).
	BlockResources []string

	// NavigateTimeout bounds Navigate until the load event. Default: 60s.
	NavigateTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 60 * time.Second
	}
	if c.XvfbBin == "" {
		c.XvfbBin = "Xvfb"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Session is one browser with one stealth tab. It is not safe for
// concurrent navigation; the scanner drives it from a single goroutine.
type Session struct {
	cfg     Config
	browser *rod.Browser
	page    *rod.Page
	lnch    *launcher.Launcher
	xvfb    *xvfbProc
	hijack  *rod.HijackRouter

	closeOnce sync.Once
	closeErr  error
}

// Open launches or attaches to Chrome and opens the stealth tab. Any
// partially acquired resource is released on failure.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	cfg.defaults()
	s := &Session{cfg: cfg}
	if err := s.open(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) open(ctx context.Context) error {
	log := s.cfg.Logger

	if s.needsXvfb() {
		if err := s.startXvfb(ctx); err != nil {
			return fmt.Errorf("browser: xvfb: %w", err)
		}
	}

	wsURL := s.cfg.RemoteURL
	if wsURL != "" {
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().
			Context(ctx).
			Headless(s.cfg.Headless).
			Set("start-maximized").
			Set("disable-blink-features", "AutomationControlled").
			Delete("enable-automation")
		if s.cfg.Bin != "" {
			l = l.Bin(s.cfg.Bin)
		}
		if s.cfg.UserDataDir != "" {
			l = l.UserDataDir(s.cfg.UserDataDir)
		}
		if s.xvfb != nil {
			l = l.Env(append(os.Environ(), "DISPLAY="+s.cfg.XvfbDisplay)...)
		}
		s.lnch = l

		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		log.Info("browser: launched local chrome", "url", wsURL, "headless", s.cfg.Headless)
	}

	// NoDefaultDevice keeps the real maximized viewport instead of rod's
	// emulated 1200x900 window.
	b := rod.New().ControlURL(wsURL).NoDefaultDevice()
	if err := b.Connect(); err != nil {
		return fmt.Errorf("browser: connect: %w", err)
	}
	s.browser = b

	page, err := stealth.Page(b)
	if err != nil {
		return fmt.Errorf("browser: stealth tab: %w", err)
	}
	s.page = page

	if len(s.cfg.BlockResources) > 0 {
		s.hijack = applyResourceBlocking(page, s.cfg.BlockResources)
	}
	return nil
}

// Navigate loads url and returns after the load event. Results rendered
// asynchronously afterwards are not awaited here.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigateTimeout)
	defer cancel()

	p := s.page.Context(navCtx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("browser: wait load %s: %w", url, err)
	}
	return nil
}

// Location returns the tab's current URL.
func (s *Session) Location(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("browser: location: %w", err)
	}
	return info.URL, nil
}

// Title returns the current document title.
func (s *Session) Title(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("browser: title: %w", err)
	}
	return info.Title, nil
}

// HTML serialises the live DOM, including content rendered by scripts.
func (s *Session) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("browser: html: %w", err)
	}
	return html, nil
}

// Screenshot writes a PNG of the viewport to path.
func (s *Session) Screenshot(ctx context.Context, path string) error {
	img, err := s.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return fmt.Errorf("browser: screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("browser: screenshot dir: %w", err)
	}
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return fmt.Errorf("browser: screenshot %s: %w", path, err)
	}
	return nil
}

// Close tears everything down. Safe to call more than once; only the first
// call does work.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.hijack != nil {
			errs = append(errs, s.hijack.Stop())
		}
		if s.page != nil {
			errs = append(errs, s.page.Close())
		}
		if s.browser != nil {
			errs = append(errs, s.browser.Close())
		}
		if s.lnch != nil {
			s.lnch.Cleanup()
		}
		errs = append(errs, s.stopXvfb())
		s.closeErr = errors.Join(errs...)
		if s.closeErr != nil {
			s.cfg.Logger.Warn("browser: close", "error", s.closeErr)
		} else {
			s.cfg.Logger.Info("browser: session closed")
		}
	})
	return s.closeErr
}

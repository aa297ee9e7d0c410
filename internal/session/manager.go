// Package session launches the isolated browser sessions searches run
// in. Every record gets a fresh browser process with its own
// fingerprint, its own proxy lease and a routing policy that strips
// the page down to what phone extraction needs. Nothing is shared
// between sessions, so one burned identity cannot poison the next.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"phonehunt/internal/metrics"
	"phonehunt/internal/proxy"
	"phonehunt/pkg/fingerprint"
)

// ErrNotStarted is returned by Run before Start has brought up the
// driver.
var ErrNotStarted = errors.New("session: manager not started")

var launchArgs = []string{
	"--disable-blink-features=AutomationControlled",
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-infobars",
	"--disable-dev-shm-usage",
	"--disable-background-networking",
	"--disable-extensions",
	"--no-first-run",
	"--disable-gpu",
}

// Task is the work one session performs once its page is ready.
type Task func(page playwright.Page) error

// Manager owns the Playwright driver and runs single-use sessions.
type Manager struct {
	pw       *playwright.Playwright
	headless bool
	log      zerolog.Logger
}

func NewManager(headless bool, log zerolog.Logger) *Manager {
	return &Manager{headless: headless, log: log}
}

// Start brings up the Playwright driver. Call Stop when done.
func (m *Manager) Start() error {
	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("start playwright: %w", err)
	}
	m.pw = pw
	m.log.Info().Bool("headless", m.headless).Msg("playwright driver started")
	return nil
}

// Stop shuts the driver down.
func (m *Manager) Stop() {
	if m.pw != nil {
		if err := m.pw.Stop(); err != nil {
			m.log.Warn().Err(err).Msg("playwright driver stop failed")
		}
		m.pw = nil
	}
}

// Run launches a fresh browser behind the lease, builds one stealth
// context and page, executes the task, and tears everything down no
// matter how the task ends. The policy, when given, is installed as
// the context's route interceptor.
func (m *Manager) Run(ctx context.Context, lease *proxy.Lease, policy *BandwidthPolicy, task Task) error {
	if m.pw == nil {
		return ErrNotStarted
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fp := fingerprint.Random()
	m.log.Debug().
		Str("platform", fp.Platform).
		Str("timezone", fp.TimezoneID).
		Str("webgl", fp.Extra.WebGL.Vendor).
		Int("viewport_w", fp.Viewport.Width).
		Int("viewport_h", fp.Viewport.Height).
		Msg("session fingerprint")

	browser, err := m.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.headless),
		Args:     launchArgs,
	})
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if err := browser.Close(); err != nil {
			m.log.Warn().Err(err).Msg("browser close failed")
		}
	}()

	cs := playwright.ColorScheme(fp.ColorScheme)
	opts := playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(fp.UserAgent),
		Viewport: &playwright.Size{
			Width:  fp.Viewport.Width,
			Height: fp.Viewport.Height,
		},
		Locale:            playwright.String(fp.Locale),
		TimezoneId:        playwright.String(fp.TimezoneID),
		ColorScheme:       &cs,
		DeviceScaleFactor: playwright.Float(fp.DeviceScaleFactor),
		IsMobile:          playwright.Bool(fp.IsMobile),
		HasTouch:          playwright.Bool(fp.HasTouch),
		ExtraHttpHeaders: map[string]string{
			"Accept-Language":           "en-US,en;q=0.9",
			"DNT":                       "1",
			"Upgrade-Insecure-Requests": "1",
		},
	}
	if lease != nil {
		opts.Proxy = lease.Playwright()
	}

	browserCtx, err := browser.NewContext(opts)
	if err != nil {
		return fmt.Errorf("create context: %w", err)
	}
	defer func() {
		if err := browserCtx.Close(); err != nil {
			m.log.Warn().Err(err).Msg("context close failed")
		}
	}()

	for _, script := range []string{fingerprint.StealthScript(fp), fingerprint.OverlayGuardScript()} {
		if err := browserCtx.AddInitScript(playwright.Script{Content: playwright.String(script)}); err != nil {
			return fmt.Errorf("inject init script: %w", err)
		}
	}

	if policy != nil {
		if err := browserCtx.Route("**/*", policy.Handle); err != nil {
			return fmt.Errorf("install route policy: %w", err)
		}
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}

	page.On("popup", func(popup playwright.Page) {
		m.log.Debug().Msg("closing popup")
		popup.Close()
	})

	metrics.SessionsStarted.Inc()
	start := time.Now()
	defer func() {
		metrics.SessionDuration.Observe(time.Since(start).Seconds())
		if policy != nil {
			allowed, blocked := policy.Stats()
			m.log.Debug().
				Int64("allowed", allowed).
				Int64("blocked", blocked).
				Dur("duration", time.Since(start)).
				Msg("session finished")
		}
	}()

	return task(page)
}

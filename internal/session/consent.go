package session

import (
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
)

var modalSelectors = []string{
	`[role="dialog"]`,
	".modal",
	`[aria-modal="true"]`,
	".modal-container",
	".cky-modal",
	".privacy-modal",
}

var dismissSelectors = []string{
	`text="I AGREE"`,
	`text="Accept All"`,
	`text="Accept"`,
	`text="Close"`,
	".close-button",
	`[aria-label="Close"]`,
}

// AcceptConsent clears the privacy dialog that gates the search site.
// It waits up to timeout for the affirmative control and clicks it,
// then falls back to scanning known modal containers for a dismiss
// button. Returns whether anything was dismissed; no dialog appearing
// within the window is a normal outcome, not an error.
func AcceptConsent(page playwright.Page, timeout time.Duration, log zerolog.Logger) bool {
	agree, err := page.WaitForSelector(`text="I AGREE"`, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
		State:   playwright.WaitForSelectorStateVisible,
	})
	if err == nil && agree != nil {
		if err := agree.Click(); err == nil {
			log.Debug().Msg("consent dialog accepted")
			Pause(400*time.Millisecond, 800*time.Millisecond)
			return true
		}
	}

	for _, sel := range modalSelectors {
		modal, err := page.QuerySelector(sel)
		if err != nil || modal == nil {
			continue
		}
		for _, dismiss := range dismissSelectors {
			btn, err := modal.QuerySelector(dismiss)
			if err != nil || btn == nil {
				continue
			}
			if err := btn.Click(); err == nil {
				log.Debug().Str("modal", sel).Str("control", dismiss).Msg("modal dismissed")
				Pause(400*time.Millisecond, 800*time.Millisecond)
				return true
			}
		}
	}
	return false
}

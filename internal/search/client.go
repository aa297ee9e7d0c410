// Package search drives the person-search site inside a prepared
// session page and turns result cards into candidates. It performs
// exactly one search per page, the way sessions are provisioned, and
// every wait it issues carries a timeout.
package search

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"phonehunt/internal/address"
	"phonehunt/internal/session"
)

// ErrInvalidName is returned before any navigation when the name does
// not carry both a first and a last token.
var ErrInvalidName = errors.New("search: name needs first and last token")

const (
	firstNameSelector = `input[placeholder="eg. John"]`
	lastNameSelector  = `input[placeholder="eg. Smith"]`
	citySelector      = `input[placeholder="eg. Chicago"]`
	stateSelector     = `select`
	resultSelector    = `.person`
)

// Client fills the search form and parses the results page.
type Client struct {
	BaseURL           string
	DefaultState      string
	NavigationTimeout time.Duration
	SelectorTimeout   time.Duration
	ConsentTimeout    time.Duration
	Log               zerolog.Logger
}

func (c *Client) navigationMillis() float64 {
	if c.NavigationTimeout <= 0 {
		return 18000
	}
	return float64(c.NavigationTimeout.Milliseconds())
}

func (c *Client) selectorMillis() float64 {
	if c.SelectorTimeout <= 0 {
		return 12000
	}
	return float64(c.SelectorTimeout.Milliseconds())
}

// Search runs one search for first/last, optionally narrowed by city
// and state, and returns the candidates in page order. Zero results
// is (empty Result, nil); errors mean the page never reached a usable
// state.
func (c *Client) Search(page playwright.Page, first, last, city, state string) (*Result, error) {
	first = strings.TrimSpace(first)
	last = strings.TrimSpace(last)
	if first == "" || last == "" {
		return nil, ErrInvalidName
	}

	c.Log.Info().Str("first", first).Str("last", last).Str("city", city).Str("state", state).Msg("searching")

	// The site's landing page holds heavy resources, so wait for load
	// rather than domcontentloaded, which can fire absurdly late here.
	if _, err := page.Goto(c.BaseURL, playwright.PageGotoOptions{
		Timeout:   playwright.Float(c.navigationMillis()),
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		return nil, fmt.Errorf("navigate to search page: %w", err)
	}
	session.Pause(400*time.Millisecond, 900*time.Millisecond)

	session.AcceptConsent(page, c.ConsentTimeout, c.Log)

	if err := c.fillField(page, firstNameSelector, first); err != nil {
		return nil, fmt.Errorf("fill first name: %w", err)
	}
	if err := c.fillField(page, lastNameSelector, last); err != nil {
		return nil, fmt.Errorf("fill last name: %w", err)
	}

	// City and state narrow the search but their absence never stops
	// it; the form submits fine without them.
	if city != "" {
		if err := c.fillField(page, citySelector, city); err != nil {
			c.Log.Warn().Err(err).Str("city", city).Msg("could not fill city")
		}
	}
	c.selectState(page, state)

	session.Pause(800*time.Millisecond, 1500*time.Millisecond)
	if err := page.Press(lastNameSelector, "Enter"); err != nil {
		return nil, fmt.Errorf("submit search: %w", err)
	}
	session.Pause(800*time.Millisecond, 1500*time.Millisecond)

	return c.collectResults(page, first, last)
}

func (c *Client) fillField(page playwright.Page, selector, value string) error {
	if _, err := page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(c.selectorMillis()),
		State:   playwright.WaitForSelectorStateVisible,
	}); err != nil {
		return err
	}
	if err := session.TypeHuman(page, selector, value); err != nil {
		return err
	}
	session.Pause(200*time.Millisecond, 500*time.Millisecond)
	return nil
}

// selectState picks the state dropdown entry by its full name,
// falling back to the default when the requested one is not offered.
// State selection failing entirely is tolerated; the search just runs
// wider.
func (c *Client) selectState(page playwright.Page, state string) {
	name := address.StateName(state)
	if name == "" {
		name = c.defaultStateName()
	}

	dropdown, err := page.WaitForSelector(stateSelector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(c.selectorMillis()),
		State:   playwright.WaitForSelectorStateVisible,
	})
	if err != nil || dropdown == nil {
		c.Log.Warn().Err(err).Msg("state dropdown not found")
		return
	}

	session.MoveMouse(page)
	if _, err := dropdown.SelectOption(playwright.SelectOptionValues{Labels: &[]string{name}}); err != nil {
		fallback := c.defaultStateName()
		c.Log.Warn().Err(err).Str("state", name).Str("fallback", fallback).Msg("state not selectable")
		if name != fallback {
			if _, err := dropdown.SelectOption(playwright.SelectOptionValues{Labels: &[]string{fallback}}); err != nil {
				c.Log.Warn().Err(err).Msg("fallback state not selectable")
			}
		}
	}
	session.Pause(200*time.Millisecond, 500*time.Millisecond)
}

func (c *Client) defaultStateName() string {
	if name := address.StateName(c.DefaultState); name != "" {
		return name
	}
	return "Florida"
}

// collectResults waits for person cards and parses them. A page that
// rendered a no-results message yields an empty Result; a page that
// never rendered results at all is an error.
func (c *Client) collectResults(page playwright.Page, first, last string) (*Result, error) {
	if _, err := page.WaitForSelector(resultSelector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(c.selectorMillis()),
		State:   playwright.WaitForSelectorStateVisible,
	}); err != nil {
		content, cerr := page.Content()
		if cerr == nil && strings.Contains(strings.ToLower(content), "no results") {
			c.Log.Info().Str("first", first).Str("last", last).Msg("search returned no results")
			return &Result{}, nil
		}
		return nil, fmt.Errorf("results never appeared: %w", err)
	}

	cards, err := page.QuerySelectorAll(resultSelector)
	if err != nil {
		return nil, fmt.Errorf("query result cards: %w", err)
	}

	result := &Result{}
	for _, card := range cards {
		text, err := card.InnerText()
		if err != nil {
			continue
		}
		html, err := card.InnerHTML()
		if err != nil {
			continue
		}
		if cand, ok := parseCard(text, html, first, last); ok {
			result.Candidates = append(result.Candidates, cand)
		}
	}

	c.Log.Info().
		Int("cards", len(cards)).
		Int("candidates", len(result.Candidates)).
		Msg("results parsed")
	return result, nil
}

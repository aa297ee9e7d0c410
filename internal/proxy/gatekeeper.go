// Package proxy supplies the leases every search session runs behind.
// The search site sits behind aggressive bot protection, so sessions
// never go out on the bare server address. A Gatekeeper hands out one
// lease per session and reports ErrUnavailable when it cannot, which
// callers treat as a signal to stop the whole batch rather than burn
// records on a direct connection.
package proxy

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
)

// ErrUnavailable means no working lease can be produced right now.
// Wrap it so callers can test with errors.Is.
var ErrUnavailable = errors.New("proxy unavailable")

// Gatekeeper produces one lease per browser session.
type Gatekeeper interface {
	Acquire(ctx context.Context) (*Lease, error)
}

// Lease is a single-session grant of an upstream proxy. ExitIP is the
// public address observed during the acquisition probe, kept for
// logging and the usage ledger.
type Lease struct {
	ID         uuid.UUID
	Server     string
	Username   string
	Password   string
	ExitIP     string
	AcquiredAt time.Time
}

// URL renders the lease as a credentialed proxy URL.
func (l *Lease) URL() string {
	u, err := url.Parse(l.Server)
	if err != nil || u.Host == "" {
		return l.Server
	}
	if l.Username != "" {
		u.User = url.UserPassword(l.Username, l.Password)
	}
	return u.String()
}

// Playwright converts the lease into browser proxy settings.
func (l *Lease) Playwright() *playwright.Proxy {
	p := &playwright.Proxy{Server: l.Server}
	if l.Username != "" {
		p.Username = playwright.String(l.Username)
		p.Password = playwright.String(l.Password)
	}
	return p
}

package proxy

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	xproxy "golang.org/x/net/proxy"
	"golang.org/x/sync/errgroup"
)

// CheckResult is the outcome of validating a single upstream.
type CheckResult struct {
	Upstream Upstream
	OK       bool
	Latency  time.Duration
	Err      error
}

// Checker validates upstreams concurrently. HTTP upstreams get a
// bounded probe through the proxy; SOCKS upstreams get a tunneled TCP
// dial to the target host. Limit caps the in-flight checks.
type Checker struct {
	ProbeURL   string
	TargetAddr string
	Timeout    time.Duration
	Limit      int
	Log        zerolog.Logger
}

func (c *Checker) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 10 * time.Second
	}
	return c.Timeout
}

// Check validates every upstream and returns results in input order.
func (c *Checker) Check(ctx context.Context, ups []Upstream) []CheckResult {
	limit := c.Limit
	if limit <= 0 {
		limit = 10
	}

	results := make([]CheckResult, len(ups))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, up := range ups {
		g.Go(func() error {
			start := time.Now()
			err := c.checkOne(ctx, up)
			res := CheckResult{
				Upstream: up,
				OK:       err == nil,
				Latency:  time.Since(start),
				Err:      err,
			}
			mu.Lock()
			results[i] = res
			mu.Unlock()

			if err != nil {
				c.Log.Debug().Err(err).Str("proxy", up.Server).Msg("check failed")
			} else {
				c.Log.Debug().Str("proxy", up.Server).Dur("latency", res.Latency).Msg("check passed")
			}
			return nil
		})
	}
	g.Wait()
	return results
}

func (c *Checker) checkOne(ctx context.Context, up Upstream) error {
	parsed, err := url.Parse(up.Server)
	if err != nil {
		return fmt.Errorf("parse server: %w", err)
	}

	switch parsed.Scheme {
	case "socks5", "socks4":
		return c.dialThroughSocks(ctx, up, parsed.Host)
	default:
		_, err := probeVia(ctx, up.URL(), c.ProbeURL, c.timeout())
		return err
	}
}

// dialThroughSocks opens a tunneled TCP connection to the target
// through the SOCKS endpoint. Reaching the target's TLS port is
// enough to count the upstream as alive.
func (c *Checker) dialThroughSocks(ctx context.Context, up Upstream, socksAddr string) error {
	target := c.TargetAddr
	if target == "" {
		target = "www.zabasearch.com:443"
	}

	var auth *xproxy.Auth
	if up.Username != "" {
		auth = &xproxy.Auth{User: up.Username, Password: up.Password}
	}

	dialer, err := xproxy.SOCKS5("tcp", socksAddr, auth, &net.Dialer{Timeout: c.timeout()})
	if err != nil {
		return fmt.Errorf("socks dialer: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	conn, err := dialer.(xproxy.ContextDialer).DialContext(ctx, "tcp", target)
	if err != nil {
		return fmt.Errorf("socks dial %s: %w", target, err)
	}
	return conn.Close()
}

package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Gateway fronts a single rotating residential gateway. The upstream
// rotates exit IPs on its own, so every Acquire returns a fresh lease
// on the same endpoint after a bounded probe confirms it is routable.
type Gateway struct {
	server   string
	username string
	password string
	probeURL string
	timeout  time.Duration
	log      zerolog.Logger
}

// NewGateway builds a gateway-backed Gatekeeper. Credentials come from
// configuration; an empty server means no gateway is configured and
// every Acquire reports ErrUnavailable.
func NewGateway(server, username, password, probeURL string, timeout time.Duration, log zerolog.Logger) *Gateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Gateway{
		server:   server,
		username: username,
		password: password,
		probeURL: probeURL,
		timeout:  timeout,
		log:      log,
	}
}

func (g *Gateway) Acquire(ctx context.Context) (*Lease, error) {
	if g.server == "" {
		return nil, fmt.Errorf("%w: no gateway configured", ErrUnavailable)
	}

	lease := &Lease{
		ID:         uuid.New(),
		Server:     g.server,
		Username:   g.username,
		Password:   g.password,
		AcquiredAt: time.Now(),
	}

	exitIP, err := probeVia(ctx, lease.URL(), g.probeURL, g.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: gateway probe: %v", ErrUnavailable, err)
	}
	lease.ExitIP = exitIP

	g.log.Info().
		Str("lease", lease.ID.String()).
		Str("exit_ip", exitIP).
		Msg("gateway lease acquired")
	return lease, nil
}

// probeVia performs a bounded GET through the given proxy URL. For
// ipify-style endpoints the trimmed body is the exit IP.
func probeVia(ctx context.Context, proxyURL, target string, timeout time.Duration) (string, error) {
	if target == "" {
		target = "https://api.ipify.org"
	}
	u, err := url.Parse(proxyURL)
	if err != nil {
		return "", fmt.Errorf("parse proxy url: %w", err)
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:             http.ProxyURL(u),
			DisableKeepAlives: true,
		},
	}
	defer client.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("probe returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

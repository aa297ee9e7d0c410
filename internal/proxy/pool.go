package proxy

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Upstream is one proxy endpoint from the pool file.
type Upstream struct {
	Server   string
	Username string
	Password string
}

// String renders the upstream in pool file format: credentialed
// entries as host:port:user:pass, plain ones as their URL.
func (u Upstream) String() string {
	if u.Username != "" {
		parsed, err := url.Parse(u.Server)
		if err != nil {
			return u.Server
		}
		return fmt.Sprintf("%s:%s:%s", parsed.Host, u.Username, u.Password)
	}
	return u.Server
}

// URL renders the upstream as a credentialed proxy URL.
func (u Upstream) URL() string {
	parsed, err := url.Parse(u.Server)
	if err != nil || parsed.Host == "" {
		return u.Server
	}
	if u.Username != "" {
		parsed.User = url.UserPassword(u.Username, u.Password)
	}
	return parsed.String()
}

// Host returns the endpoint's hostname, the key the usage ledger is
// tracked under.
func (u Upstream) Host() string {
	parsed, err := url.Parse(u.Server)
	if err != nil || parsed.Hostname() == "" {
		return u.Server
	}
	return parsed.Hostname()
}

// ParseLine turns one pool file line into an Upstream. Accepted
// shapes: a full URL (scheme://[user:pass@]host:port), a bare
// host:port assumed to be HTTP, and the flat host:port:user:pass
// format String writes.
func ParseLine(line string) (Upstream, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Upstream{}, false
	}

	if strings.Contains(line, "://") {
		parsed, err := url.Parse(line)
		if err != nil || parsed.Host == "" {
			return Upstream{}, false
		}
		up := Upstream{Server: parsed.Scheme + "://" + parsed.Host}
		if parsed.User != nil {
			up.Username = parsed.User.Username()
			up.Password, _ = parsed.User.Password()
		}
		return up, true
	}

	parts := strings.Split(line, ":")
	switch len(parts) {
	case 2:
		return Upstream{Server: "http://" + line}, true
	case 4:
		return Upstream{
			Server:   "http://" + parts[0] + ":" + parts[1],
			Username: parts[2],
			Password: parts[3],
		}, true
	}
	return Upstream{}, false
}

// Pool is a file-backed Gatekeeper over many disposable upstreams.
// Each host is handed out at most once per day; a JSON ledger next to
// the pool file carries that guard across restarts. Acquire probes
// candidates until one answers and drops the ones that do not.
type Pool struct {
	mu        sync.Mutex
	path      string
	usagePath string
	probeURL  string
	timeout   time.Duration
	entries   []Upstream
	usage     map[string]time.Time
	log       zerolog.Logger
}

// NewPool loads the pool file and its usage ledger. A missing pool
// file is not an error; the pool just starts empty.
func NewPool(path, usagePath, probeURL string, timeout time.Duration, log zerolog.Logger) *Pool {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	p := &Pool{
		path:      path,
		usagePath: usagePath,
		probeURL:  probeURL,
		timeout:   timeout,
		usage:     make(map[string]time.Time),
		log:       log,
	}
	p.loadEntries()
	p.loadUsage()
	return p
}

func (p *Pool) loadEntries() {
	f, err := os.Open(p.path)
	if err != nil {
		if !os.IsNotExist(err) {
			p.log.Warn().Err(err).Str("file", p.path).Msg("cannot open pool file")
		}
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if up, ok := ParseLine(scanner.Text()); ok {
			p.entries = append(p.entries, up)
		}
	}
	if err := scanner.Err(); err != nil {
		p.log.Warn().Err(err).Str("file", p.path).Msg("pool file scan failed")
	}
}

func (p *Pool) loadUsage() {
	f, err := os.Open(p.usagePath)
	if err != nil {
		return
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&p.usage); err != nil {
		p.log.Warn().Err(err).Str("file", p.usagePath).Msg("cannot decode usage ledger")
	}
}

func (p *Pool) saveUsage() {
	f, err := os.Create(p.usagePath)
	if err != nil {
		p.log.Warn().Err(err).Str("file", p.usagePath).Msg("cannot write usage ledger")
		return
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(p.usage); err != nil {
		p.log.Warn().Err(err).Str("file", p.usagePath).Msg("cannot encode usage ledger")
	}
}

// available returns the upstreams not yet used today, shuffled.
func (p *Pool) available(now time.Time) []Upstream {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var out []Upstream
	for _, up := range p.entries {
		lastUsed, seen := p.usage[up.Host()]
		if !seen || lastUsed.Before(midnight) {
			out = append(out, up)
		}
	}
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Acquire probes unused upstreams in random order until one answers.
// Dead candidates are removed from the pool as they fail. When no
// candidate is left the error wraps ErrUnavailable.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	p.mu.Lock()
	candidates := p.available(time.Now())
	p.mu.Unlock()

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: pool exhausted for today", ErrUnavailable)
	}

	for _, up := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		exitIP, err := probeVia(ctx, up.URL(), p.probeURL, p.timeout)
		if err != nil {
			p.log.Debug().Err(err).Str("proxy", up.Server).Msg("candidate failed probe")
			p.MarkFailed(up.Server)
			continue
		}

		p.mu.Lock()
		p.usage[up.Host()] = time.Now()
		p.saveUsage()
		p.mu.Unlock()

		lease := &Lease{
			ID:         uuid.New(),
			Server:     up.Server,
			Username:   up.Username,
			Password:   up.Password,
			ExitIP:     exitIP,
			AcquiredAt: time.Now(),
		}
		p.log.Info().
			Str("lease", lease.ID.String()).
			Str("proxy", up.Server).
			Str("exit_ip", exitIP).
			Msg("pool lease acquired")
		return lease, nil
	}
	return nil, fmt.Errorf("%w: all %d candidates failed probing", ErrUnavailable, len(candidates))
}

// MarkFailed removes every entry with the given server address and
// persists the shrunken pool.
func (p *Pool) MarkFailed(server string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	kept := p.entries[:0]
	for _, up := range p.entries {
		if up.Server != server {
			kept = append(kept, up)
		}
	}
	if len(kept) == len(p.entries) {
		return
	}
	p.entries = kept
	if err := p.save(); err != nil {
		p.log.Warn().Err(err).Msg("cannot persist pool after removal")
	}
}

// Add parses and appends new upstreams, skipping duplicates, and
// reports how many were added.
func (p *Pool) Add(lines []string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	seen := make(map[string]bool, len(p.entries))
	for _, up := range p.entries {
		seen[up.URL()] = true
	}

	added := 0
	for _, line := range lines {
		up, ok := ParseLine(line)
		if !ok || seen[up.URL()] {
			continue
		}
		seen[up.URL()] = true
		p.entries = append(p.entries, up)
		added++
	}
	return added
}

// Save persists the pool file.
func (p *Pool) Save() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.save()
}

func (p *Pool) save() error {
	f, err := os.Create(p.path)
	if err != nil {
		return fmt.Errorf("create pool file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, up := range p.entries {
		fmt.Fprintln(w, up.String())
	}
	return w.Flush()
}

// Size reports how many upstreams the pool holds.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Entries returns a copy of the pool contents.
func (p *Pool) Entries() []Upstream {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Upstream(nil), p.entries...)
}

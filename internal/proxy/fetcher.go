package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Fetcher pulls candidate proxy lines from one public source.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]string, error)
}

func fetchClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// GeonodeFetcher queries the Geonode free proxy API.
type GeonodeFetcher struct {
	Client *http.Client
	Limit  int
}

func (f *GeonodeFetcher) Name() string { return "geonode" }

type geonodeResponse struct {
	Data []struct {
		IP        string   `json:"ip"`
		Port      string   `json:"port"`
		Protocols []string `json:"protocols"`
	} `json:"data"`
}

func (f *GeonodeFetcher) Fetch(ctx context.Context) ([]string, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	client := f.Client
	if client == nil {
		client = fetchClient()
	}

	url := fmt.Sprintf("https://proxylist.geonode.com/api/proxy-list?limit=%d&page=1&sort_by=lastChecked&sort_type=desc&filterUpTime=90&anonymityLevel=elite&protocols=http,https,socks4,socks5", limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geonode api returned status %d", resp.StatusCode)
	}

	var result geonodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	var proxies []string
	for _, item := range result.Data {
		protocol := "http"
		for _, p := range item.Protocols {
			if p == "socks5" {
				protocol = "socks5"
				break
			}
			if p == "socks4" && protocol != "socks5" {
				protocol = "socks4"
			}
		}
		proxies = append(proxies, fmt.Sprintf("%s://%s:%s", protocol, item.IP, item.Port))
	}
	return proxies, nil
}

// ProxyScrapeFetcher pulls the ProxyScrape elite list.
type ProxyScrapeFetcher struct {
	Client *http.Client
}

func (f *ProxyScrapeFetcher) Name() string { return "proxyscrape" }

func (f *ProxyScrapeFetcher) Fetch(ctx context.Context) ([]string, error) {
	client := f.Client
	if client == nil {
		client = fetchClient()
	}

	url := "https://api.proxyscrape.com/v4/free-proxy-list/get?request=display_proxies&proxy_format=protocolipport&format=text&anonymity=Elite&timeout=20000"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("proxyscrape api returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var proxies []string
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			proxies = append(proxies, line)
		}
	}
	return proxies, nil
}

// TextListFetcher pulls newline lists from arbitrary URLs. Lines may
// be host:port, CSV host,port, or carry list markers like a leading
// dash, all of which are normalized.
type TextListFetcher struct {
	Client *http.Client
	URLs   []string
}

func (f *TextListFetcher) Name() string { return "textlist" }

func (f *TextListFetcher) Fetch(ctx context.Context) ([]string, error) {
	client := f.Client
	if client == nil {
		client = fetchClient()
	}

	var proxies []string
	for _, url := range f.URLs {
		if url == "" {
			continue
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", url, err)
		}

		for _, line := range strings.Split(string(body), "\n") {
			line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
			if line == "" {
				continue
			}
			if strings.Contains(line, ",") {
				parts := strings.SplitN(line, ",", 3)
				if len(parts) >= 2 {
					line = strings.TrimSpace(parts[0]) + ":" + strings.TrimSpace(parts[1])
				} else {
					line = strings.TrimSpace(parts[0])
				}
			} else {
				line = strings.Fields(line)[0]
			}
			if _, ok := ParseLine(line); ok {
				proxies = append(proxies, line)
			}
		}
	}
	return proxies, nil
}

// FetchAll runs every fetcher, logging sources that fail, and returns
// the deduplicated union.
func FetchAll(ctx context.Context, log zerolog.Logger, fetchers ...Fetcher) []string {
	var all []string
	for _, f := range fetchers {
		lines, err := f.Fetch(ctx)
		if err != nil {
			log.Warn().Err(err).Str("source", f.Name()).Msg("proxy source failed")
			continue
		}
		log.Info().Str("source", f.Name()).Int("count", len(lines)).Msg("proxy source fetched")
		all = append(all, lines...)
	}
	return unique(all)
}

func unique(slice []string) []string {
	keys := make(map[string]bool, len(slice))
	list := make([]string, 0, len(slice))
	for _, entry := range slice {
		if !keys[entry] {
			keys[entry] = true
			list = append(list, entry)
		}
	}
	return list
}

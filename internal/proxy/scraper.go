package proxy

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
)

// FreeProxyListFetcher scrapes the free-proxy-list.net HTML table.
// Unlike the API fetchers this source only exists as markup, so it
// goes through a collector instead of a plain GET.
type FreeProxyListFetcher struct {
	collector *colly.Collector
}

func NewFreeProxyListFetcher() *FreeProxyListFetcher {
	c := colly.NewCollector(
		colly.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	c.SetRequestTimeout(20 * time.Second)
	return &FreeProxyListFetcher{collector: c}
}

func (f *FreeProxyListFetcher) Name() string { return "free-proxy-list.net" }

func (f *FreeProxyListFetcher) Fetch(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		mu        sync.Mutex
		proxies   []string
		scrapeErr error
	)

	// Table columns: IP, Port, Code, Country, Anonymity, Google, Https.
	f.collector.OnHTML("table tbody tr", func(e *colly.HTMLElement) {
		ip := strings.TrimSpace(e.ChildText("td:nth-child(1)"))
		portStr := strings.TrimSpace(e.ChildText("td:nth-child(2)"))
		anonymity := strings.ToLower(e.ChildText("td:nth-child(5)"))
		https := strings.ToLower(e.ChildText("td:nth-child(7)"))

		port, err := strconv.Atoi(portStr)
		if err != nil || ip == "" {
			return
		}
		if !strings.Contains(anonymity, "anonymous") && !strings.Contains(anonymity, "elite") {
			return
		}

		scheme := "http"
		if https == "yes" {
			scheme = "https"
		}

		mu.Lock()
		proxies = append(proxies, fmt.Sprintf("%s://%s:%d", scheme, ip, port))
		mu.Unlock()
	})

	f.collector.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("scrape %s: %w", r.Request.URL, err)
	})

	f.collector.Visit("https://free-proxy-list.net/")
	f.collector.Wait()

	if scrapeErr != nil {
		return nil, scrapeErr
	}
	return proxies, nil
}

package session

import (
	"strings"
	"sync/atomic"

	"github.com/playwright-community/playwright-go"

	"phonehunt/internal/metrics"
)

// BandwidthPolicy decides which browser requests go out. The searches
// run through metered residential proxies, so everything that is not
// needed to reach a result page and read phone numbers off it gets
// aborted: media, styling, fonts, analytics, third-party scripts and
// the site's own non-phone data sections.
//
// Decide is a pure function of resource type and URL; Handle applies
// it to a routed request and keeps the counters.
type BandwidthPolicy struct {
	EssentialDomains []string
	UnwantedData     []string
	ThirdParty       []string
	Analytics        []string
	TrackingScripts  []string
	CriticalScripts  []string
	FormCSS          []string
	FontHosts        []string
	SocialAds        []string
	BlockedTypes     []string

	allowed atomic.Int64
	blocked atomic.Int64
}

// DefaultBandwidthPolicy builds the policy for a search host. The
// host's apex, www and secure variants are essential; everything else
// is presumed disposable.
func DefaultBandwidthPolicy(searchHost string) *BandwidthPolicy {
	essential := []string{"intelius.com"}
	apex := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(searchHost)), "www.")
	if apex != "" {
		essential = append(essential, apex, "www."+apex, "secure."+apex)
	}

	return &BandwidthPolicy{
		EssentialDomains: essential,
		UnwantedData: []string{
			"email", "relatives", "family", "education", "job", "employment",
			"social", "linkedin", "facebook", "twitter", "instagram",
			"background-check", "criminal", "court", "bankruptcy",
			"assets", "property", "business", "companies", "employers",
			"schools", "universities", "degrees", "certifications",
			"marriages", "divorces", "relationships", "associations",
			"profile-images", "photos", "pictures", "avatars",
		},
		ThirdParty: []string{
			"cdn.", "static.", "assets.", "libs.", "ajax.googleapis.com",
			"code.jquery.com", "stackpath.bootstrapcdn.com", "unpkg.com",
			"jsdelivr.net", "cdnjs.cloudflare.com", "maxcdn.bootstrapcdn.com",
			"googlesyndication.com", "doubleclick.net", "amazon-adsystem.com",
			"facebook.net", "twitter.com", "instagram.com", "linkedin.com",
			"youtube.com", "vimeo.com", "tiktok.com", "snapchat.com",
			"pinterest.com", "reddit.com", "tumblr.com",
		},
		Analytics: []string{
			"google-analytics.com", "googletagmanager.com", "googlesyndication.com",
			"doubleclick.net", "googleadservices.com", "amazon-adsystem.com",
			"cookieyes.com", "contributor.google.com", "adtrafficquality.google",
			"fundingchoicesmessages.google.com", "js-sec.indexww.com",
			"facebook.com/tr", "connect.facebook.net", "analytics.twitter.com",
			"scorecardresearch.com", "quantserve.com", "hotjar.com",
			"crazyegg.com", "fullstory.com", "segment.com", "mixpanel.com",
		},
		TrackingScripts: []string{"analytics", "tracking", "gtag", "fbpixel", "hotjar", "segment", "mixpanel"},
		CriticalScripts: []string{"submit", "csrf", "form", "search"},
		FormCSS:         []string{"form", "input", "button", "search", "textbox", "dropdown", "select"},
		FontHosts:       []string{"fonts.googleapis.com", "fonts.gstatic.com", "typekit.net", "fontawesome"},
		SocialAds: []string{
			"facebook.com", "twitter.com", "instagram.com", "linkedin.com",
			"ads", "advertisement", "sponsored", "promo", "banner",
			"social-share", "like-button", "tweet-button",
		},
		BlockedTypes: []string{"websocket", "eventsource", "manifest", "texttrack", "sub_frame"},
	}
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// Decide returns whether the request may go out and the rule that
// decided it. The URL is matched lowercased, the way the site builds
// its links.
func (p *BandwidthPolicy) Decide(resourceType, rawURL string) (bool, string) {
	url := strings.ToLower(rawURL)
	essential := containsAny(url, p.EssentialDomains)

	if containsAny(url, p.UnwantedData) {
		return false, "unwanted-data"
	}
	if containsAny(url, p.ThirdParty) {
		return false, "third-party"
	}
	for _, t := range p.BlockedTypes {
		if resourceType == t {
			return false, "resource-type"
		}
	}
	if resourceType == "image" || resourceType == "media" {
		return false, "media"
	}
	if resourceType == "stylesheet" {
		if essential && containsAny(url, p.FormCSS) {
			return true, "form-css"
		}
		return false, "decorative-css"
	}
	if resourceType == "script" {
		if containsAny(url, p.TrackingScripts) {
			return false, "tracking-js"
		}
		if essential && containsAny(url, p.CriticalScripts) {
			return true, "critical-js"
		}
		return false, "non-critical-js"
	}
	if containsAny(url, p.Analytics) {
		return false, "analytics"
	}
	if resourceType == "font" || containsAny(url, p.FontHosts) {
		return false, "fonts"
	}
	if containsAny(url, []string{"stun:", "turn:", "rtc"}) {
		return false, "webrtc"
	}
	if resourceType == "beacon" || resourceType == "other" || resourceType == "ping" {
		return false, "tracking"
	}
	if !essential && containsAny(url, p.SocialAds) {
		return false, "social-ads"
	}

	// Only the page itself and its data requests survive, and only
	// when they stay on the search site.
	if resourceType == "document" || resourceType == "xhr" || resourceType == "fetch" {
		if essential {
			return true, "essential"
		}
	}
	return false, "default"
}

// Handle is the route interceptor installed on every session context.
func (p *BandwidthPolicy) Handle(route playwright.Route) {
	req := route.Request()
	allow, _ := p.Decide(req.ResourceType(), req.URL())
	if allow {
		p.allowed.Add(1)
		metrics.RequestsAllowed.Inc()
		route.Continue()
		return
	}
	p.blocked.Add(1)
	metrics.RequestsBlocked.Inc()
	route.Abort()
}

// Stats reports how many requests the policy allowed and blocked.
func (p *BandwidthPolicy) Stats() (allowed, blocked int64) {
	return p.allowed.Load(), p.blocked.Load()
}

package httpclient

import "time"

// Profile names one of the three request personalities the HTTP Client
// supports (§4.2): each carries its own timeout and default headers.
type Profile string

const (
	ProfileHTML Profile = "html"
	ProfileAPI  Profile = "api"
	ProfileRSS  Profile = "rss"
)

// defaultTimeout returns the per-profile timeout defaults from §4.2.
func defaultTimeout(p Profile) time.Duration {
	switch p {
	case ProfileAPI:
		return 10 * time.Second
	case ProfileRSS:
		return 20 * time.Second
	default:
		return 30 * time.Second
	}
}

// defaultHeaders returns the realistic, profile-specific headers applied to
// every outgoing request, per §4.2.
func defaultHeaders(p Profile) map[string]string {
	common := map[string]string{
		"Accept-Language": "en-US,en;q=0.9,da;q=0.8",
	}
	switch p {
	case ProfileAPI:
		common["User-Agent"] = "MediaScrapeBot/1.0 (+https://mediascrape.example/bot)"
		common["Accept"] = "application/json"
	case ProfileRSS:
		common["User-Agent"] = "MediaScrapeBot/1.0 (+https://mediascrape.example/bot)"
		common["Accept"] = "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8"
	default: // html
		common["User-Agent"] = "Mozilla/5.0 (compatible; MediaScrapeBot/1.0; +https://mediascrape.example/bot)"
		common["Accept"] = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	}
	return common
}

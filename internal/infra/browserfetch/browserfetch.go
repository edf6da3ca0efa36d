// Package browserfetch implements the fingerprint-spoofed headless-fetch
// strategy from §4.5 step 3: a last-resort fallback for recipes whose pages
// render their article body client-side, where a plain HTTP GET returns a
// shell the Extractor can't score.
//
// Grounded on the browse example's fetcher package: the same
// chromedp.NewExecAllocator flag set (disable-blink-features=
// AutomationControlled, a persistent UserDataDir, a realistic Chrome user
// agent) and the same stealthScript injected via
// page.AddScriptToEvaluateOnNewDocument before the page's own scripts run.
package browserfetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromeUserAgent is a realistic desktop Chrome UA string. It deliberately
// does not self-identify as a bot, unlike httpclient's profile headers —
// the whole point of this fallback is to look like a browser.
const ChromeUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Timeout bounds a single browser fetch, including Chrome startup.
const Timeout = 45 * time.Second

// stealthScript masks the automation signals a naive headless Chrome
// exposes (navigator.webdriver, missing chrome runtime, plugin list).
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
window.chrome = { runtime: {}, loadTimes: function() {}, csi: function() {}, app: {} };
Object.defineProperty(navigator, 'plugins', {
	get: () => [
		{ name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer', description: 'Portable Document Format' },
		{ name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai', description: '' },
		{ name: 'Native Client', filename: 'internal-nacl-plugin', description: '' },
	],
});
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
const originalQuery = window.navigator.permissions.query;
window.navigator.permissions.query = (parameters) => (
	parameters.name === 'notifications' ?
		Promise.resolve({ state: Notification.permission }) :
		originalQuery(parameters)
);
`

// userDataDir returns a persistent Chrome profile directory so cookies and
// other session state survive between fetches, the same way a real browser
// session would.
func userDataDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "mediascrape-chrome-profile")
}

// Fetch loads targetURL in a headless, fingerprint-spoofed Chrome instance
// and returns the rendered page's outer HTML. Callers are expected to have
// already gone through the Rate Governor for domain, same as any other
// provider fetch.
func Fetch(ctx context.Context, targetURL string) ([]byte, error) {
	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-service-autorun", true),
		chromedp.Flag("password-store", "basic"),
		chromedp.Flag("use-mock-keychain", true),
		chromedp.Flag("headless", "new"),
		chromedp.UserAgent(ChromeUserAgent),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserDataDir(userDataDir()),
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	timeoutCtx, timeoutCancel := context.WithTimeout(browserCtx, Timeout)
	defer timeoutCancel()

	var html string
	err := chromedp.Run(timeoutCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
		network.SetExtraHTTPHeaders(network.Headers(map[string]interface{}{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		})),
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("browserfetch: %w", err)
	}
	return []byte(html), nil
}

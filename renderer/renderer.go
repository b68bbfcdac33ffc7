// Package renderer drives a headless browser through an escalating
// ladder of fetch strategies per URL. Each rung is independent: timeouts
// and navigation errors are caught and treated as "no content", and the
// ladder stops at the first rung that yields enough markup. Only total
// failure across all rungs surfaces to the caller.
package renderer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/communityweave/weavebot/config"
	"github.com/communityweave/weavebot/models"
	"github.com/communityweave/weavebot/profile"
)

// settle delays applied after each rung's wait condition resolves, so
// late client-side hydration has a chance to land in the DOM.
const (
	settleFast      = 1 * time.Second
	settleContent   = 5 * time.Second
	settleLoad      = 2 * time.Second
	settleEmergency = 1 * time.Second

	readyProbeTimeout = 2 * time.Second
)

// Renderer renders pages through a per-call browser instance. It holds
// no per-URL state; concurrent Render calls are independent.
type Renderer struct {
	browserCfg  config.BrowserConfig
	rendererCfg config.RendererConfig
	probe       *mobileProbe
}

// New creates a Renderer. No browser is launched until Render is called;
// each call owns exactly one browser instance and one page.
func New(browserCfg config.BrowserConfig, rendererCfg config.RendererConfig) *Renderer {
	return &Renderer{
		browserCfg:  browserCfg,
		rendererCfg: rendererCfg,
		probe:       newMobileProbe(),
	}
}

// rung is one strategy in the escalation ladder.
type rung struct {
	ordinal int
	name    string
	fetch   func(p *rod.Page, url string) (string, error)
}

// Render runs the ladder for the URL under the given site profile.
//
// Lifecycle: launch browser → create page → evasion + resource blocking
// (both before any navigation) → mobile pre-attempt (Facebook) → rungs
// 1-4 in order. The browser is released on every exit path.
func (r *Renderer) Render(ctx context.Context, rawURL string, p profile.Profile) (*models.RenderResult, error) {
	browser, cleanup, err := r.launch()
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeRenderFailed, "failed to launch browser", err)
	}
	defer cleanup()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeRenderFailed, "failed to create page", err)
	}
	defer func() { _ = page.Close() }()

	// Evasion and resource blocking only take effect for navigations
	// that happen after they are installed.
	if p.PrivacyHeavy {
		applyEvasion(page, p)
	}
	if router := setupBlocking(page, r.browserCfg.BlockedResourceTypes); router != nil {
		defer func() { _ = router.Stop() }()
	}

	pg := page.Context(ctx)

	// Facebook's mobile pages often skip the login interstitial; try the
	// mobile variant before spending the full ladder on the desktop URL.
	if mobileURL := p.MobileVariant(rawURL); mobileURL != "" {
		if html, ok := r.tryMobileVariant(ctx, pg, mobileURL); ok {
			slog.Info("render accepted mobile variant", "url", mobileURL, "bytes", len(html))
			return r.result(html, 2, mobileURL), nil
		}
	}

	var lastErr error
	for _, rg := range r.ladder(p) {
		html, err := rg.fetch(pg, rawURL)
		if err != nil {
			slog.Debug("render rung failed", "rung", rg.name, "url", rawURL, "error", err)
			lastErr = err
			continue
		}
		if len(html) >= r.rendererCfg.MinAcceptLength {
			slog.Info("render accepted", "rung", rg.name, "url", rawURL, "bytes", len(html))
			return r.result(html, rg.ordinal, rawURL), nil
		}
		slog.Debug("render rung yielded insufficient content",
			"rung", rg.name, "url", rawURL, "bytes", len(html))
	}

	return nil, models.NewPipelineError(models.ErrCodeRenderFailed, "all render strategies exhausted", lastErr)
}

// ladder builds the rung sequence for a profile. The fast path is only
// worth attempting on sites that do not fight automation.
func (r *Renderer) ladder(p profile.Profile) []rung {
	rungs := make([]rung, 0, 4)
	if !p.PrivacyHeavy {
		rungs = append(rungs, rung{1, "network-settle", r.fetchNetworkSettle})
	}
	rungs = append(rungs,
		rung{2, "content-ready", func(pg *rod.Page, url string) (string, error) {
			return r.fetchContentReady(pg, url, p)
		}},
		rung{3, "load-event", r.fetchLoadEvent},
		rung{4, "emergency", r.fetchEmergency},
	)
	return rungs
}

// fetchNetworkSettle navigates and waits until the network settles.
func (r *Renderer) fetchNetworkSettle(pg *rod.Page, url string) (string, error) {
	p := pg.Timeout(r.rendererCfg.RungTimeouts[0])
	defer p.CancelTimeout()

	wait := p.WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)
	if err := p.Navigate(url); err != nil {
		return "", err
	}
	wait()
	time.Sleep(settleFast)
	return p.HTML()
}

// fetchContentReady waits only for DOM parse completion, settles, then
// probes for site-specific content selectors. A failed probe is not an
// error: whatever markup is present is returned.
func (r *Renderer) fetchContentReady(pg *rod.Page, url string, prof profile.Profile) (string, error) {
	p := pg.Timeout(r.rendererCfg.RungTimeouts[1])
	defer p.CancelTimeout()

	wait := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(url); err != nil {
		return "", err
	}
	wait()
	time.Sleep(settleContent)

	waitForReadySelector(p, prof.ReadySelectors)

	html, err := p.HTML()
	if err != nil {
		return "", err
	}

	// Meetup serves an authenticated-only page variant when the URL
	// carries tracking parameters; a query-stripped retry reaches the
	// public page.
	if prof.StripQueryOnLogin && loginFormSignature(html) {
		if stripped := profile.StripQuery(url); stripped != url {
			slog.Info("login signature detected, retrying query-stripped URL",
				"url", url, "stripped", stripped)
			wait := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
			if err := p.Navigate(stripped); err != nil {
				return html, nil
			}
			wait()
			time.Sleep(settleContent)
			if retried, err := p.HTML(); err == nil && len(retried) > 0 {
				return retried, nil
			}
		}
	}

	return html, nil
}

// fetchLoadEvent waits for the browser's full-load signal.
func (r *Renderer) fetchLoadEvent(pg *rod.Page, url string) (string, error) {
	p := pg.Timeout(r.rendererCfg.RungTimeouts[2])
	defer p.CancelTimeout()

	wait := p.WaitNavigation(proto.PageLifecycleEventNameLoad)
	if err := p.Navigate(url); err != nil {
		return "", err
	}
	wait()
	time.Sleep(settleLoad)
	return p.HTML()
}

// fetchEmergency navigates with no wait condition beyond the HTTP
// response and accepts only a 200 status.
func (r *Renderer) fetchEmergency(pg *rod.Page, url string) (string, error) {
	p := pg.Timeout(r.rendererCfg.RungTimeouts[3])
	defer p.CancelTimeout()

	if err := p.Navigate(url); err != nil {
		return "", err
	}
	time.Sleep(settleEmergency)

	if status := navigationStatus(p); !emergencyStatusOK(status) {
		return "", models.NewPipelineError(models.ErrCodeRenderFailed,
			"emergency capture rejected non-200 response", nil)
	}
	return p.HTML()
}

// emergencyStatusOK accepts only a 200 response on the emergency rung.
// Status 0 means the performance API did not report one (older Chromium
// builds lack responseStatus); an unknown status passes rather than
// failing the last remaining rung on capture plumbing.
func emergencyStatusOK(status int) bool {
	return status == 0 || status == 200
}

// tryMobileVariant renders the mobile URL with the content-ready
// strategy, accepting it only when it carries enough markup and no
// login/signup cues of its own. An HTTP probe with a Chrome TLS
// fingerprint runs first so an interstitial-serving variant does not
// cost a browser navigation.
func (r *Renderer) tryMobileVariant(ctx context.Context, pg *rod.Page, mobileURL string) (string, bool) {
	if r.probe.showsLoginCues(ctx, mobileURL) {
		slog.Debug("mobile variant probe showed login cues, skipping", "url", mobileURL)
		return "", false
	}

	p := pg.Timeout(r.rendererCfg.RungTimeouts[1])
	defer p.CancelTimeout()

	wait := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(mobileURL); err != nil {
		return "", false
	}
	wait()
	time.Sleep(settleContent)

	html, err := p.HTML()
	if err != nil || len(html) < r.rendererCfg.MinAcceptLength {
		return "", false
	}
	if hasLoginCues(html) {
		return "", false
	}
	return html, true
}

// waitForReadySelector probes the profile's content selectors with a
// short timeout each, returning as soon as one appears. Probe failure is
// expected on unknown layouts and is not reported.
func waitForReadySelector(p *rod.Page, selectors []string) {
	for _, sel := range selectors {
		probe := p.Timeout(readyProbeTimeout)
		_, err := probe.Element(sel)
		probe.CancelTimeout()
		if err == nil {
			return
		}
	}
}

// navigationStatus reads the HTTP status of the last navigation from the
// page's performance entries, avoiding CDP network event listeners.
func navigationStatus(p *rod.Page) int {
	res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch (e) {}
		return 0;
	}`)
	if err != nil {
		return 0
	}
	return res.Value.Int()
}

// loginFormSignature reports a credential-entry page: login, password
// and email cues all present with no event content. The "eventorigin"
// tracking parameter is stripped so it cannot mask the absence.
func loginFormSignature(html string) bool {
	lower := strings.ToLower(html)
	if !strings.Contains(lower, "log in") ||
		!strings.Contains(lower, "password") ||
		!strings.Contains(lower, "email") {
		return false
	}
	return !strings.Contains(strings.ReplaceAll(lower, "eventorigin", ""), "event")
}

// hasLoginCues reports login/signup interstitial cues on a page.
func hasLoginCues(html string) bool {
	lower := strings.ToLower(html)
	for _, cue := range []string{"log in", "sign up", "create new account"} {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}

func (r *Renderer) result(html string, ordinal int, finalURL string) *models.RenderResult {
	return &models.RenderResult{
		HTML:       html,
		Rung:       ordinal,
		ByteLength: len(html),
		FinalURL:   finalURL,
	}
}

// launch starts a dedicated browser process and returns a cleanup that
// closes the connection and kills the process. Flags follow the usual
// headless-hardening set.
func (r *Renderer) launch() (*rod.Browser, func(), error) {
	l := launcher.New().
		Headless(r.browserCfg.Headless).
		NoSandbox(r.browserCfg.NoSandbox)

	if r.browserCfg.Bin != "" {
		l = l.Bin(r.browserCfg.Bin)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, nil, err
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, nil, err
	}

	cleanup := func() {
		if err := browser.Close(); err != nil {
			slog.Warn("browser close failed", "error", err)
		}
		l.Kill()
	}
	return browser, cleanup, nil
}

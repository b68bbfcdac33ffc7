package renderer

import (
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/communityweave/weavebot/profile"
)

const desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// browserHeaders are the standard headers a real Chrome sends with a
// top-level navigation.
var browserHeaders = map[string]string{
	"Accept":             "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language":    "en-US,en;q=0.9",
	"Sec-Ch-Ua":          `"Chromium";v="131", "Not_A Brand";v="24"`,
	"Sec-Ch-Ua-Mobile":   "?0",
	"Sec-Ch-Ua-Platform": `"Windows"`,
}

// applyEvasion installs the anti-fingerprinting measures for a
// privacy-heavy profile: realistic user agent and viewport, standard
// browser headers, the stock stealth script, and the profile's own
// before-load script. Must run before the first navigation. Failures are
// logged and skipped; a partially-evasive render beats no render.
func applyEvasion(page *rod.Page, p profile.Profile) {
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      desktopUA,
		AcceptLanguage: "en-US,en",
		Platform:       "Win32",
	}); err != nil {
		slog.Warn("evasion: user agent override failed", "profile", p.Name, "error", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); err != nil {
		slog.Warn("evasion: viewport override failed", "profile", p.Name, "error", err)
	}

	if err := (proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(browserHeaders),
	}).Call(page); err != nil {
		slog.Warn("evasion: extra headers failed", "profile", p.Name, "error", err)
	}

	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("evasion: stealth injection failed", "profile", p.Name, "error", err)
	}

	if p.EvasionScript != "" {
		if _, err := page.EvalOnNewDocument(p.EvasionScript); err != nil {
			slog.Warn("evasion: profile script injection failed", "profile", p.Name, "error", err)
		}
	}
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders
// type (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

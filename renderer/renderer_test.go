package renderer

import (
	"strings"
	"testing"
	"time"

	"github.com/communityweave/weavebot/config"
	"github.com/communityweave/weavebot/profile"
)

func testRenderer() *Renderer {
	return New(config.BrowserConfig{}, config.RendererConfig{
		RungTimeouts:    [4]time.Duration{15 * time.Second, 20 * time.Second, 25 * time.Second, 30 * time.Second},
		MinAcceptLength: 1000,
	})
}

func TestLadder_GenericUsesAllFourRungs(t *testing.T) {
	rungs := testRenderer().ladder(profile.Generic)
	if len(rungs) != 4 {
		t.Fatalf("got %d rungs, want 4", len(rungs))
	}
	for i, rg := range rungs {
		if rg.ordinal != i+1 {
			t.Errorf("rung %d has ordinal %d, want %d", i, rg.ordinal, i+1)
		}
	}
	if rungs[0].name != "network-settle" {
		t.Errorf("first generic rung = %q, want network-settle", rungs[0].name)
	}
}

func TestLadder_PrivacyHeavySkipsFastPath(t *testing.T) {
	rungs := testRenderer().ladder(profile.Facebook)
	if len(rungs) != 3 {
		t.Fatalf("got %d rungs, want 3", len(rungs))
	}
	// Ordinals keep their ladder position even when the fast path is
	// skipped, so logs and outcomes stay comparable across profiles.
	if rungs[0].ordinal != 2 || rungs[0].name != "content-ready" {
		t.Errorf("first privacy-heavy rung = %d %q, want 2 content-ready", rungs[0].ordinal, rungs[0].name)
	}
	if rungs[2].ordinal != 4 || rungs[2].name != "emergency" {
		t.Errorf("last rung = %d %q, want 4 emergency", rungs[2].ordinal, rungs[2].name)
	}
}

func TestLoginFormSignature(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{
			"credential wall",
			`<form>Log in<input type="password"><input type="email"></form>`,
			true,
		},
		{
			"credential cues next to event content",
			`<form>Log in<input type="password"><input type="email"></form><h1>Networking Event</h1>`,
			false,
		},
		{
			"eventorigin tracking does not mask the wall",
			`<form>Log in<input type="password"><input type="email"></form><a href="?eventOrigin=home">next</a>`,
			true,
		},
		{
			"password alone is not a signature",
			`<p>Forgot your password?</p>`,
			false,
		},
		{
			"plain event page",
			`<h1>Summer Social</h1><time>7 PM</time>`,
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := loginFormSignature(tt.html); got != tt.want {
				t.Errorf("loginFormSignature = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEmergencyStatusOK(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{200, true},
		{0, true}, // status unreported by the performance API
		{301, false},
		{403, false},
		{404, false},
		{500, false},
	}

	for _, tt := range tests {
		if got := emergencyStatusOK(tt.status); got != tt.want {
			t.Errorf("emergencyStatusOK(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestHasLoginCues(t *testing.T) {
	if !hasLoginCues("<div>Create new account</div>") {
		t.Error("signup cue not detected")
	}
	if !hasLoginCues("<a>LOG IN</a>") {
		t.Error("cue matching must be case-insensitive")
	}
	if hasLoginCues("<h1>Concert in the park</h1>") {
		t.Error("false positive on plain content")
	}
}

func TestVisibleText_SkipsScriptAndStyle(t *testing.T) {
	markup := `<html><head><style>.a { color: red }</style></head>
	<body><script>var hidden = "log in";</script><p>Concert tonight</p></body></html>`

	text := visibleText(markup)
	if !strings.Contains(text, "Concert tonight") {
		t.Errorf("visible text missing body content: %q", text)
	}
	if strings.Contains(text, "hidden") || strings.Contains(text, "color: red") {
		t.Errorf("script or style content leaked: %q", text)
	}
	if hasLoginCues(text) {
		t.Error("login cue inside a script must not count as visible")
	}
}

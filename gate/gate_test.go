package gate

import (
	"strings"
	"testing"

	"github.com/communityweave/weavebot/profile"
)

func TestDetect_NavigationLoginLinkIsAccessible(t *testing.T) {
	html := `<nav><a href="/login">Log in</a><a href="/signup">Sign up</a></nav><main><h1>Event Title</h1></main>`
	if d := Detect(html, profile.Generic); d.Gated {
		t.Errorf("navigation login link should not gate the page, got reason %q", d.Reason)
	}
}

func TestDetect_FooterLoginLinkIsAccessible(t *testing.T) {
	html := `<main><h1>Event</h1></main><footer><a>Log in</a></footer>`
	if d := Detect(html, profile.Generic); d.Gated {
		t.Error("footer login link should not gate the page")
	}
}

func TestDetect_GenericGatingPhrases(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"please log in", "<h1>Please log in to continue</h1>"},
		{"must log in", "<p>You must log in to view this content</p>"},
		{"login required", "<div>Login required to access this page</div>"},
		{"mixed case", "<h1>PLEASE LOG IN TO CONTINUE</h1>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Detect(tt.html, profile.Generic)
			if !d.Gated {
				t.Errorf("expected gated for %q", tt.html)
			}
			if d.Reason == "" {
				t.Error("gated decision must carry a remediation reason")
			}
		})
	}
}

func TestDetect_FacebookPhrases(t *testing.T) {
	html := `<h1>You must log in first</h1><p>Join Facebook to see this event</p>`
	d := Detect(html, profile.Facebook)
	if !d.Gated {
		t.Fatal("facebook login wall should be gated")
	}
	if !strings.Contains(d.Reason, "Facebook") {
		t.Errorf("facebook gating should carry the facebook remediation message, got %q", d.Reason)
	}
}

func TestDetect_ProfileReasonsDiffer(t *testing.T) {
	html := "<h1>Please log in to continue</h1>"
	fb := Detect(html, profile.Facebook)
	mu := Detect(html, profile.Meetup)
	if fb.Reason == mu.Reason {
		t.Error("different profiles should carry distinct remediation messages")
	}
}

func TestDetect_MeetupCredentialCues(t *testing.T) {
	// All three credential cues and no event content: gated.
	wall := `<form>Log in<input type="password" name="password"><input type="email" name="email"></form>`
	if d := Detect(wall, profile.Meetup); !d.Gated {
		t.Error("credential form without event content should be gated")
	}

	// Same cues on a page that mentions an event: accessible.
	withEvent := wall + `<main><h1>Genius Networking Event</h1></main>`
	if d := Detect(withEvent, profile.Meetup); d.Gated {
		t.Error("credential cues next to event content should not gate")
	}

	// "eventorigin" in a tracking URL must not count as event content.
	withTracking := wall + `<a href="?eventorigin=1">next</a>`
	if d := Detect(withTracking, profile.Meetup); !d.Gated {
		t.Error("the eventorigin tracking substring must not mask a login wall")
	}
}

func TestDetect_CredentialCuesOnlyApplyToStripQueryProfiles(t *testing.T) {
	wall := `<form>Log in<input type="password"><input type="email"></form>`
	if d := Detect(wall, profile.Generic); d.Gated {
		t.Error("the credential-cue rule is meetup-specific and must not fire for generic pages")
	}
}

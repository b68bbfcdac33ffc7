package profile

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"facebook event", "https://www.facebook.com/events/123456789/", "facebook"},
		{"facebook short link", "https://fb.me/e/abc123", "facebook"},
		{"meetup event", "https://www.meetup.com/genius-networking-boulder/events/305189326/?eventOrigin=your_events", "meetup"},
		{"eventbrite event", "https://www.eventbrite.com/e/bierhalle-brawl-tickets-1354003373539", "eventbrite"},
		{"luma falls back to generic", "https://lu.ma/futurefight", "generic"},
		{"unknown site", "https://example.com/events/launch-party", "generic"},
		{"lookalike domain is not matched", "https://notfacebook.com/events/1", "generic"},
		{"unparseable url", "://not-a-url", "generic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.url)
			if got.Name != tt.want {
				t.Errorf("Detect(%q).Name = %q, want %q", tt.url, got.Name, tt.want)
			}
		})
	}
}

func TestDetect_PrivacyHeavyFlags(t *testing.T) {
	if !Detect("https://facebook.com/events/1").PrivacyHeavy {
		t.Error("facebook should be privacy-heavy")
	}
	if Detect("https://example.com/").PrivacyHeavy {
		t.Error("generic sites should not be privacy-heavy")
	}
}

func TestMobileVariant(t *testing.T) {
	got := Facebook.MobileVariant("https://www.facebook.com/events/123/?ref=newsfeed")
	want := "https://m.facebook.com/events/123/?ref=newsfeed"
	if got != want {
		t.Errorf("MobileVariant = %q, want %q", got, want)
	}

	if got := Meetup.MobileVariant("https://www.meetup.com/x/"); got != "" {
		t.Errorf("profiles without a mobile host should return empty, got %q", got)
	}
}

func TestStripQuery(t *testing.T) {
	got := StripQuery("https://www.meetup.com/group/events/1/?eventOrigin=your_events#details")
	want := "https://www.meetup.com/group/events/1/"
	if got != want {
		t.Errorf("StripQuery = %q, want %q", got, want)
	}

	unchanged := "https://example.com/page"
	if got := StripQuery(unchanged); got != unchanged {
		t.Errorf("StripQuery without query = %q, want unchanged", got)
	}
}

package bot

import (
	"strings"
	"testing"

	"github.com/communityweave/weavebot/models"
)

func TestURLPattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"event: https://www.meetup.com/x/events/1/ please", "https://www.meetup.com/x/events/1/"},
		{"event: check http://example.com/e?id=2", "http://example.com/e?id=2"},
		{"event: no link here", ""},
		{"https://a.com and https://b.com", "https://a.com"},
	}

	for _, tt := range tests {
		if got := urlPattern.FindString(tt.in); got != tt.want {
			t.Errorf("FindString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSavedEvent(t *testing.T) {
	title := "Summer Social"
	start := "2024-06-10T19:00:00"
	record := &models.EventRecord{Title: &title, Start: &start}

	got := formatSavedEvent(record, "https://airtable.com/app/tbl/viw/rec1")

	for _, want := range []string{
		"https://airtable.com/app/tbl/viw/rec1",
		"*Title:* Summer Social",
		"*Start:* 2024-06-10T19:00:00",
		"*Description:* N/A",
		"*End:* N/A",
		"*Location:* N/A",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("formatted message missing %q:\n%s", want, got)
		}
	}
}

func TestOrNA(t *testing.T) {
	if got := orNA(nil); got != "N/A" {
		t.Errorf("orNA(nil) = %q", got)
	}
	empty := ""
	if got := orNA(&empty); got != "N/A" {
		t.Errorf("orNA(empty) = %q", got)
	}
	v := "value"
	if got := orNA(&v); got != "value" {
		t.Errorf("orNA = %q", got)
	}
}

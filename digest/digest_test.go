package digest

import (
	"strings"
	"testing"

	"github.com/communityweave/weavebot/models"
)

func event(fields map[string]any) models.StoredRecord {
	return models.StoredRecord{ID: "rec", Fields: fields}
}

func update(content string) models.StoredRecord {
	return models.StoredRecord{ID: "rec", Fields: map[string]any{"Content": content}}
}

func TestFormat_EventLine(t *testing.T) {
	events := []models.StoredRecord{event(map[string]any{
		"Event Title":    "Summer Social",
		"Start Datetime": "2024-06-10T19:00:00",
		"Location":       "Rayback Collective",
		"Link":           "https://example.com/e/1",
	})}

	got := Format(events, nil)
	want := "• Mon, Jun 10 @ 7:00 PM @ Rayback Collective - [Summer Social](https://example.com/e/1)\n"
	if !strings.Contains(got, want) {
		t.Errorf("digest = %q, want it to contain %q", got, want)
	}
	if !strings.HasPrefix(got, "*Events:*\n") {
		t.Errorf("digest missing events heading: %q", got)
	}
}

func TestFormat_EventLineAcceptsAllStoredDateShapes(t *testing.T) {
	// Every shape the store accepts on write must render with a real
	// date, never Date TBD.
	tests := []struct {
		start string
		want  string
	}{
		{"2024-06-10T19:00:00Z", "Mon, Jun 10 @ 7:00 PM"},
		{"2024-06-10T19:00:00", "Mon, Jun 10 @ 7:00 PM"},
		{"2024-06-10T19:00", "Mon, Jun 10 @ 7:00 PM"},
		{"2024-06-10", "Mon, Jun 10 @ 12:00 AM"},
	}

	for _, tt := range tests {
		got := Format([]models.StoredRecord{event(map[string]any{
			"Event Title":    "Summer Social",
			"Start Datetime": tt.start,
		})}, nil)
		if !strings.Contains(got, tt.want) {
			t.Errorf("start %q rendered %q, want it to contain %q", tt.start, got, tt.want)
		}
		if strings.Contains(got, "Date TBD") {
			t.Errorf("start %q rendered as Date TBD", tt.start)
		}
	}
}

func TestFormat_MissingFieldsFallBack(t *testing.T) {
	events := []models.StoredRecord{event(map[string]any{})}

	got := Format(events, nil)
	for _, want := range []string{"Date TBD", "No Location", "No Title", "(#)"} {
		if !strings.Contains(got, want) {
			t.Errorf("digest = %q, missing fallback %q", got, want)
		}
	}
}

func TestFormat_UnparseableDateIsTBD(t *testing.T) {
	events := []models.StoredRecord{event(map[string]any{
		"Event Title":    "Picnic",
		"Start Datetime": "sometime in June",
	})}

	if got := Format(events, nil); !strings.Contains(got, "Date TBD") {
		t.Errorf("unparseable start datetime should render as Date TBD, got %q", got)
	}
}

func TestFormat_Empty(t *testing.T) {
	got := Format(nil, nil)
	want := "No upcoming events or recent updates found."
	if got != want {
		t.Errorf("Format(nil, nil) = %q, want %q", got, want)
	}
}

func TestFormat_UpdatesDeduplicated(t *testing.T) {
	updates := []models.StoredRecord{
		update("We shipped the new community site this week with a fresh calendar."),
		update("We shipped the new community site this week with a fresh calendar."),
		update("Volunteers needed for the garden build day, sign up at the front desk."),
	}

	got := Format(nil, updates)
	if n := strings.Count(got, "community site"); n != 1 {
		t.Errorf("duplicate update appeared %d times, want 1:\n%s", n, got)
	}
	if !strings.Contains(got, "Volunteers needed") {
		t.Errorf("distinct update dropped:\n%s", got)
	}
	if !strings.Contains(got, "*Updates:*") {
		t.Errorf("digest missing updates heading: %q", got)
	}
}

func TestFingerprint(t *testing.T) {
	a := fingerprint("hello world this is a test")
	b := fingerprint("hello world this is a test")
	if a != b {
		t.Error("fingerprint must be deterministic")
	}
	if distance(a, b) != 0 {
		t.Error("identical texts must have distance 0")
	}

	c := fingerprint("completely different content about gardening schedules downtown")
	if distance(a, c) <= dedupThreshold {
		t.Errorf("unrelated texts too close: distance %d", distance(a, c))
	}

	if fingerprint("") != 0 {
		t.Error("empty content fingerprints to 0")
	}
	if fingerprint("HELLO WORLD this IS a TEST") != a {
		t.Error("fingerprint must be case-insensitive")
	}
}

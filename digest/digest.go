// Package digest formats stored events and updates into the weekly
// Markdown newsletter draft.
package digest

import (
	"fmt"
	"strings"
	"time"

	"github.com/communityweave/weavebot/models"
)

// dedupThreshold is the maximum simhash distance at which two updates
// are treated as duplicates and only the first is kept.
const dedupThreshold = 3

// Format renders events and updates into a Markdown newsletter string.
// Events come out as one bullet per event with a short date, location
// and linked title; updates as plain bullets with near-duplicates
// suppressed.
func Format(events, updates []models.StoredRecord) string {
	var b strings.Builder

	if len(events) > 0 {
		b.WriteString("*Events:*\n")
		for _, record := range events {
			b.WriteString("• " + eventLine(record.Fields) + "\n")
		}
		b.WriteString("\n")
	}

	updates = dedupeUpdates(updates)
	if len(updates) > 0 {
		b.WriteString("*Updates:*\n")
		for _, record := range updates {
			content := stringField(record.Fields, "Content", "No content.")
			b.WriteString("• " + content + "\n")
		}
	}

	if b.Len() == 0 {
		return "No upcoming events or recent updates found."
	}
	return b.String()
}

// eventLine formats one event as "Mon, Jun 10 @ 7:00 PM @ Location - [Title](link)".
func eventLine(fields map[string]any) string {
	title := stringField(fields, "Event Title", "No Title")
	link := stringField(fields, "Link", "#")
	location := stringField(fields, "Location", "No Location")

	formatted := "Date TBD"
	if start := stringField(fields, "Start Datetime", ""); start != "" {
		if t, err := parseStart(start); err == nil {
			formatted = t.Format("Mon, Jan 2 @ 3:04 PM")
		}
	}

	return fmt.Sprintf("%s @ %s - [%s](%s)", formatted, location, title, link)
}

// parseStart accepts the ISO shapes the store validates on write.
func parseStart(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("digest: unparseable start datetime %q", s)
}

// dedupeUpdates drops updates whose content is a near-duplicate of an
// earlier one. People often paste the same announcement twice with tiny
// edits; fingerprint distance catches those where exact matching fails.
func dedupeUpdates(updates []models.StoredRecord) []models.StoredRecord {
	var kept []models.StoredRecord
	var fingerprints []uint64

	for _, record := range updates {
		content := stringField(record.Fields, "Content", "")
		fp := fingerprint(content)

		dup := false
		for _, seen := range fingerprints {
			if distance(fp, seen) <= dedupThreshold {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		fingerprints = append(fingerprints, fp)
		kept = append(kept, record)
	}
	return kept
}

func stringField(fields map[string]any, key, fallback string) string {
	if v, ok := fields[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

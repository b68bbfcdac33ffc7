// Package confidence scores an excerpt against the four orthogonal
// information needs of an event record: title, date, time and location.
// Scoring is a pure function of the excerpt text; each satisfied check
// adds 25 points.
package confidence

import (
	"regexp"
	"strings"

	"github.com/communityweave/weavebot/models"
)

var titleKeywords = []string{
	"event", "meetup", "conference", "workshop", "summit", "expo", "festival",
}

var locationKeywords = []string{
	"address", "venue", "location", "room", "building", "center", "hall",
	"online", "virtual", "zoom", "teams", "webinar",
}

var (
	isoDatePattern   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	slashDatePattern = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`)
	dashDatePattern  = regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{4}\b`)
	monthPattern     = regexp.MustCompile(`\b(jan(uary)?|feb(ruary)?|mar(ch)?|apr(il)?|may|jun(e)?|jul(y)?|aug(ust)?|sep(tember)?|oct(ober)?|nov(ember)?|dec(ember)?)\b`)
	weekdayPattern   = regexp.MustCompile(`\b(mon(day)?|tue(sday)?|wed(nesday)?|thu(rsday)?|fri(day)?|sat(urday)?|sun(day)?)\b`)
	ordinalPattern   = regexp.MustCompile(`\b\d{1,2}(st|nd|rd|th)\b`)

	clockPattern    = regexp.MustCompile(`\b\d{1,2}:\d{2}\b`)
	twelveHrPattern = regexp.MustCompile(`\b\d{1,2}(:\d{2})?\s*(am|pm)\b`)
	dayPartPattern  = regexp.MustCompile(`\b(morning|afternoon|evening|night)\b`)

	streetPattern = regexp.MustCompile(`\b\d+\s+\w+\s+(street|st|avenue|ave|road|rd|boulevard|blvd|drive|dr|lane|ln|way|court|ct|place|pl)\b`)
)

// Score evaluates the excerpt text and reports a 0-100 confidence score
// plus the specific gaps.
func Score(text string) models.ConfidenceReport {
	lower := strings.ToLower(text)

	r := models.ConfidenceReport{
		HasTitle:    containsAny(lower, titleKeywords),
		HasDate:     hasDateSignal(lower),
		HasTime:     hasTimeSignal(lower),
		HasLocation: hasLocationSignal(lower),
	}

	for _, check := range []struct {
		ok   bool
		name string
	}{
		{r.HasTitle, "title"},
		{r.HasDate, "date"},
		{r.HasTime, "time"},
		{r.HasLocation, "location"},
	} {
		if check.ok {
			r.Score += 25
		} else {
			r.Missing = append(r.Missing, check.name)
		}
	}

	return r
}

func hasDateSignal(lower string) bool {
	return isoDatePattern.MatchString(lower) ||
		slashDatePattern.MatchString(lower) ||
		dashDatePattern.MatchString(lower) ||
		monthPattern.MatchString(lower) ||
		weekdayPattern.MatchString(lower) ||
		ordinalPattern.MatchString(lower)
}

func hasTimeSignal(lower string) bool {
	return clockPattern.MatchString(lower) ||
		twelveHrPattern.MatchString(lower) ||
		dayPartPattern.MatchString(lower)
}

func hasLocationSignal(lower string) bool {
	return streetPattern.MatchString(lower) || containsAny(lower, locationKeywords)
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// Package excerpt reduces rendered markup to a bounded, information-dense
// text excerpt. Accumulation is priority-ordered: embedded structured data
// first, then metadata tags, then ranked content-bearing selectors, then
// increasingly desperate fallbacks. Structured machine-readable signal is
// strictly more trustworthy than heuristically matched DOM text and must
// never be crowded out by it.
package excerpt

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/communityweave/weavebot/models"
	"github.com/communityweave/weavebot/profile"
)

// Cap thresholds. Empirical defaults tuned against the event-platform
// test corpus, not derived invariants.
const (
	capDefault    = 4000
	capStructured = 6000

	// BodyFallbackCap bounds the orchestrator's single re-extraction pass.
	BodyFallbackCap = 8000

	// sparseThreshold triggers the sentence-level fallback on Facebook
	// pages whose selector matches came up nearly empty.
	sparseThreshold     = 800
	sentenceFallbackCap = 2000

	// lastResortThreshold triggers the raw-body fallback.
	lastResortThreshold = 500
	lastResortCap       = 4000

	// minFragmentLen filters out trivial selector matches ("Share", "RSVP").
	minFragmentLen = 10

	maxMetaMatches = 15
)

// metaKeySubstrings select metadata tags worth keeping.
var metaKeySubstrings = []string{
	"event", "date", "time", "location", "venue", "title", "description",
}

// noiseSelector strips blocks that never carry event content.
const noiseSelector = "script, style, noscript, nav, footer, header, aside, iframe, svg, form, template"

// rankedSelectors is the priority-ordered list of structural hints walked
// during selector extraction. Schema-typed attributes first, then generic
// event/date/venue class patterns, headings, test ids, and finally
// platform-specific class names (Luma, Meetup, Eventbrite, Facebook).
var rankedSelectors = compileSelectors([]string{
	`[itemtype*="Event"]`,
	`[itemprop="name"]`,
	`[itemprop="startDate"]`,
	`[itemprop="location"]`,
	`[class*="event-title"]`,
	`[id*="event-title"]`,
	`[class*="event-name"]`,
	`[class*="event-detail"]`,
	`[class*="event-info"]`,
	`[class*="event-description"]`,
	`h1`,
	`h2`,
	`[class*="description"]`,
	`[class*="date"]`,
	`[id*="date"]`,
	`time`,
	`[class*="time"]`,
	`[class*="location"]`,
	`[id*="location"]`,
	`[class*="venue"]`,
	`[class*="address"]`,
	`h3`,
	`[data-testid*="event"]`,
	`[data-testid*="title"]`,
	`[data-testid*="date"]`,
	`[data-testid*="venue"]`,
	// Luma renders event pages through styled-jsx containers.
	`[class^="jsx-"] h1`,
	`[class*="event-page"]`,
	// Meetup.
	`[data-event-label]`,
	`[class*="eventTimeDisplay"]`,
	`[class*="venueDisplay"]`,
	// Eventbrite.
	`[class*="event-details__data"]`,
	`[class*="structured-content"]`,
	`[class*="date-info"]`,
	// Facebook event permalinks.
	`[data-testid="event-permalink-details"]`,
	`div[role="main"] span[dir="auto"]`,
})

// sentenceKeywords mark sentence-like units worth keeping in the
// aggressive Facebook fallback.
var sentenceKeywords = []string{
	"event", "when", "where", "date", "time", "location", "venue",
	"starts", "begins", "ends", "join", "attend", "going",
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	sentenceRe   = regexp.MustCompile(`[.!?\n]+`)
)

func compileSelectors(selectors []string) []cascadia.Selector {
	compiled := make([]cascadia.Selector, 0, len(selectors))
	for _, s := range selectors {
		compiled = append(compiled, cascadia.MustCompile(s))
	}
	return compiled
}

// Extract reduces rendered markup to a bounded excerpt for the given
// site profile. It never fails: unparseable markup degrades to a
// whitespace-collapsed raw-text excerpt.
func Extract(html string, p profile.Profile) *models.ExtractedExcerpt {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		text := truncate(collapse(html), capDefault)
		return &models.ExtractedExcerpt{Text: text}
	}

	// ── 1. Structured data blocks (highest trust, raises the cap) ──
	blocks := structuredBlocks(doc, p)
	limit := capDefault
	if len(blocks) > 0 {
		limit = capStructured
	}

	acc := newAccumulator(limit)
	for _, b := range blocks {
		acc.add(b)
	}

	// ── 2. Metadata tag summary ─────────────────────────────────────
	metaLine, metaCount := metaSummary(doc)
	if metaLine != "" {
		acc.add(metaLine)
	}

	// ── 3. Structural noise removal before text extraction ──────────
	doc.Find(noiseSelector).Remove()

	// ── 4. Ranked selector walk ─────────────────────────────────────
	for _, sel := range rankedSelectors {
		if acc.full() {
			break
		}
		doc.FindMatcher(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if len(text) > minFragmentLen {
				acc.add(text)
			}
			return !acc.full()
		})
	}

	// ── 5. Aggressive sentence fallback for sparse Facebook pages ──
	if p.Name == profile.Facebook.Name && acc.len() < sparseThreshold {
		appendEventSentences(acc, bodyText(doc))
	}

	// ── 6. Last resort: raw body text ───────────────────────────────
	// Structured blocks are never discarded here: a page whose only
	// content is a small JSON-LD block stays led by that block, with
	// body text appended rather than substituted.
	text := acc.text()
	if len(text) < lastResortThreshold {
		body := truncate(collapse(bodyText(doc)), lastResortCap)
		if len(blocks) > 0 {
			if body != "" {
				text = text + "\n" + body
			}
		} else {
			text = body
		}
	}

	return &models.ExtractedExcerpt{
		Text:              truncate(collapse(text), limit),
		HasStructuredData: len(blocks) > 0,
		Sources: models.SourceBreakdown{
			StructuredDataBlocks: len(blocks),
			MetaTagCount:         metaCount,
		},
	}
}

// metaSummary joins relevant metadata tags into one bounded summary line.
func metaSummary(doc *goquery.Document) (string, int) {
	var parts []string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		key, _ := s.Attr("name")
		if key == "" {
			key, _ = s.Attr("property")
		}
		if key == "" {
			key, _ = s.Attr("itemprop")
		}
		content, _ := s.Attr("content")
		if key == "" || content == "" {
			return true
		}
		if !relevantMetaKey(strings.ToLower(key)) {
			return true
		}
		parts = append(parts, key+": "+strings.TrimSpace(content))
		return len(parts) < maxMetaMatches
	})
	return strings.Join(parts, " | "), len(parts)
}

func relevantMetaKey(key string) bool {
	if strings.HasPrefix(key, "og:") || strings.HasPrefix(key, "twitter:") {
		return true
	}
	for _, sub := range metaKeySubstrings {
		if strings.Contains(key, sub) {
			return true
		}
	}
	return false
}

// appendEventSentences splits the page text into sentence-like units and
// keeps those mentioning an event-relevant keyword, bounded to
// sentenceFallbackCap characters of additions.
func appendEventSentences(acc *accumulator, text string) {
	added := 0
	for _, unit := range sentenceRe.Split(text, -1) {
		unit = strings.TrimSpace(unit)
		if len(unit) <= minFragmentLen {
			continue
		}
		lower := strings.ToLower(unit)
		relevant := false
		for _, kw := range sentenceKeywords {
			if strings.Contains(lower, kw) {
				relevant = true
				break
			}
		}
		if !relevant {
			continue
		}
		if !acc.add(unit) {
			return
		}
		added += len(unit)
		if added >= sentenceFallbackCap {
			return
		}
	}
}

func bodyText(doc *goquery.Document) string {
	body := doc.Find("body")
	if body.Length() > 0 {
		return body.Text()
	}
	return doc.Text()
}

// accumulator gathers de-duplicated fragments up to a running cap.
type accumulator struct {
	b     strings.Builder
	seen  map[string]struct{}
	limit int
}

func newAccumulator(limit int) *accumulator {
	return &accumulator{seen: make(map[string]struct{}), limit: limit}
}

// add appends a fragment unless it was already seen or the cap has been
// reached. Returns false once the accumulator is full.
func (a *accumulator) add(fragment string) bool {
	if a.full() {
		return false
	}
	if _, dup := a.seen[fragment]; dup {
		return true
	}
	a.seen[fragment] = struct{}{}
	if a.b.Len() > 0 {
		a.b.WriteByte('\n')
	}
	a.b.WriteString(fragment)
	return !a.full()
}

func (a *accumulator) full() bool   { return a.b.Len() >= a.limit }
func (a *accumulator) len() int     { return a.b.Len() }
func (a *accumulator) text() string { return a.b.String() }

// collapse normalizes all whitespace runs to single spaces.
func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	for !utf8.ValidString(cut) && len(cut) > 0 {
		cut = cut[:len(cut)-1]
	}
	return cut
}

package excerpt

import (
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/communityweave/weavebot/models"
)

// minReadableLength is the minimum text length for readability output to
// be considered valid; below it we assume the algorithm missed the main
// content and fall back to stripped body text.
const minReadableLength = 50

// BodyFallback is the wide re-extraction strategy: the full page text,
// noise-stripped, capped at limit characters. The orchestrator uses it
// for its single low-confidence retry; Extract's own last-resort layer
// uses the same mechanics with a smaller cap.
//
// Readability is tried first because it removes boilerplate that a plain
// body-text walk keeps; when it chokes or returns next to nothing, the
// noise-stripped body text is used instead.
func BodyFallback(html, sourceURL string, limit int) *models.ExtractedExcerpt {
	text := readableText(html, sourceURL)
	if len(strings.TrimSpace(text)) < minReadableLength {
		text = strippedBodyText(html)
	}
	return &models.ExtractedExcerpt{Text: truncate(collapse(text), limit)}
}

func readableText(html, sourceURL string) string {
	parsed, err := nurl.Parse(sourceURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		slog.Debug("body fallback: readability failed, using stripped body text",
			"url", sourceURL, "error", err)
		return ""
	}
	return article.TextContent
}

func strippedBodyText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find(noiseSelector).Remove()
	return bodyText(doc)
}

package excerpt

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/communityweave/weavebot/profile"
)

// eventTypes is the exact set of JSON-LD @type values treated as
// event-shaped structured data.
var eventTypes = map[string]struct{}{
	"Event":         {},
	"SocialEvent":   {},
	"BusinessEvent": {},
}

// facebookEventMarker tags Facebook's scheduled-event payloads embedded
// in inline bootstrap scripts instead of JSON-LD.
const facebookEventMarker = `"ScheduledEvent"`

// maxInlineBlock bounds a single inline-script block extraction.
const maxInlineBlock = 2000

// structuredBlocks collects serialized event-typed structured data from
// the document, in document order. Blocks are re-serialized compactly so
// they survive whitespace normalization verbatim.
func structuredBlocks(doc *goquery.Document, p profile.Profile) []string {
	var blocks []string

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var payload any
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return
		}
		for _, node := range eventNodes(payload) {
			if serialized, err := json.Marshal(node); err == nil {
				blocks = append(blocks, string(serialized))
			}
		}
	})

	// Facebook ships event data inside inline bootstrap scripts rather
	// than JSON-LD; pull a bounded object around the marker.
	if p.Name == profile.Facebook.Name {
		doc.Find("script:not([type='application/ld+json'])").Each(func(_ int, s *goquery.Selection) {
			if block := inlineEventBlock(s.Text()); block != "" {
				blocks = append(blocks, block)
			}
		})
	}

	return blocks
}

// eventNodes walks a decoded JSON-LD payload (object, array, or @graph)
// and returns the nodes whose declared type is event-shaped.
func eventNodes(payload any) []any {
	var found []any
	switch v := payload.(type) {
	case []any:
		for _, item := range v {
			found = append(found, eventNodes(item)...)
		}
	case map[string]any:
		if isEventTyped(v["@type"]) {
			found = append(found, v)
			break
		}
		if graph, ok := v["@graph"]; ok {
			found = append(found, eventNodes(graph)...)
		}
	}
	return found
}

// isEventTyped handles both string and array @type declarations.
func isEventTyped(t any) bool {
	switch v := t.(type) {
	case string:
		_, ok := eventTypes[v]
		return ok
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				if _, hit := eventTypes[s]; hit {
					return true
				}
			}
		}
	}
	return false
}

// inlineEventBlock extracts the JSON object surrounding the scheduled
// event marker from an inline script, bounded to maxInlineBlock bytes.
// Returns "" when the marker is absent or no balanced object is found.
func inlineEventBlock(script string) string {
	idx := strings.Index(script, facebookEventMarker)
	if idx < 0 {
		return ""
	}

	// Walk back to the opening brace of the enclosing object.
	start := strings.LastIndexByte(script[:idx], '{')
	if start < 0 {
		return ""
	}

	// Scan forward for the balanced closing brace, ignoring braces
	// inside string literals.
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(script) && i-start < maxInlineBlock; i++ {
		c := script[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = inString
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return script[start : i+1]
				}
			}
		}
	}

	// No balanced close within the bound; take the window as-is.
	end := start + maxInlineBlock
	if end > len(script) {
		end = len(script)
	}
	return script[start:end]
}

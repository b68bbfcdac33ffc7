// Package gate classifies rendered markup as accessible or hidden
// behind a login wall, so the pipeline can short-circuit before wasting
// an extraction pass on content that cannot yield real data.
package gate

import (
	"strings"

	"github.com/communityweave/weavebot/models"
	"github.com/communityweave/weavebot/profile"
)

// genericGatePhrases are explicit gating phrases that mark a login wall
// on any site. A bare "log in" link in navigation must NOT match; these
// are full sentences a wall page shows instead of content.
var genericGatePhrases = []string{
	"please log in to continue",
	"you must log in to view this content",
	"login required to access this page",
	"sign in to view this content",
	"authentication required",
	"you need to sign in",
	"please sign in to continue",
}

// Detect runs the generic and profile-specific phrase families over the
// lower-cased markup and returns a gate decision with a per-profile
// remediation message.
func Detect(html string, p profile.Profile) models.GateDecision {
	lower := strings.ToLower(html)

	for _, phrase := range genericGatePhrases {
		if strings.Contains(lower, phrase) {
			return models.GateDecision{Gated: true, Reason: p.GateReason}
		}
	}

	for _, phrase := range p.GatePhrases {
		if strings.Contains(lower, phrase) {
			return models.GateDecision{Gated: true, Reason: p.GateReason}
		}
	}

	// Meetup disambiguation: the presence of all three credential-entry
	// cues marks a wall only when the page has no event content at all.
	// The "eventorigin" tracking parameter is stripped first so its
	// "event" substring cannot mask a genuine wall.
	if p.StripQueryOnLogin && hasCredentialCues(lower) {
		stripped := strings.ReplaceAll(lower, "eventorigin", "")
		if !strings.Contains(stripped, "event") {
			return models.GateDecision{Gated: true, Reason: p.GateReason}
		}
	}

	return models.GateDecision{}
}

// hasCredentialCues reports whether the page shows a full credential
// entry form: a login prompt together with password and email fields.
func hasCredentialCues(lower string) bool {
	return strings.Contains(lower, "log in") &&
		strings.Contains(lower, "password") &&
		strings.Contains(lower, "email")
}

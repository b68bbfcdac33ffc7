package models

// RenderResult is the output of a successful renderer ladder run.
// It is consumed only by the gate detector and the extractor; it is
// never persisted.
type RenderResult struct {
	// HTML is the fully rendered page markup.
	HTML string

	// Rung records which ladder strategy produced the markup (1-4).
	Rung int

	// ByteLength is len(HTML), recorded for logging and acceptance checks.
	ByteLength int

	// FinalURL is the URL the browser ended up on (mobile variant,
	// query-stripped retry, redirects).
	FinalURL string
}

// GateDecision classifies rendered markup as accessible or hidden behind
// a login wall.
type GateDecision struct {
	Gated bool

	// Reason is a user-facing remediation message, set only when Gated.
	Reason string
}

// SourceBreakdown records where an excerpt's signal came from.
type SourceBreakdown struct {
	StructuredDataBlocks int
	MetaTagCount         int
}

// ExtractedExcerpt is the bounded, relevance-ranked text handed to the
// structured-extraction service.
type ExtractedExcerpt struct {
	Text              string
	HasStructuredData bool
	Sources           SourceBreakdown
}

// ConfidenceReport scores an excerpt against the four information needs
// of an event record. Each satisfied check contributes 25 points.
type ConfidenceReport struct {
	Score       int // 0-100
	HasTitle    bool
	HasDate     bool
	HasTime     bool
	HasLocation bool

	// Missing lists the names of the failed checks.
	Missing []string
}

// OutcomeKind tags a PipelineOutcome.
type OutcomeKind string

const (
	OutcomeAccessible   OutcomeKind = "accessible"
	OutcomeGated        OutcomeKind = "gated"
	OutcomeRenderFailed OutcomeKind = "render_failed"
)

// PipelineOutcome is the sole value the pipeline exposes to callers.
// Excerpt and Report are set only when Kind is OutcomeAccessible; Reason
// carries the gate remediation message or the render failure cause.
type PipelineOutcome struct {
	Kind    OutcomeKind
	Excerpt *ExtractedExcerpt
	Report  *ConfidenceReport
	Rung    int
	Reason  string
}

// RecordKind selects which record shape the extraction service returns.
type RecordKind string

const (
	KindEvent  RecordKind = "event"
	KindUpdate RecordKind = "update"
)

// EventRecord is the typed record returned by the structured-extraction
// service for event pages. All fields are nullable: the service is
// instructed to return null rather than fabricate values.
type EventRecord struct {
	Title       *string `json:"event_title"`
	Description *string `json:"description"`
	Start       *string `json:"start_datetime"`
	End         *string `json:"end_datetime"`
	Location    *string `json:"location"`
}

// UpdateRecord is the typed record for article/update pages.
type UpdateRecord struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Source  *string `json:"source"`
}

// StoredRecord is one row returned by the records store.
type StoredRecord struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

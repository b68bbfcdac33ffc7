// Package pipeline sequences the content-acquisition stages:
// render → gate check → extract → validate → (at most one re-extract),
// then hands the final excerpt to the structured-extraction service.
// Each URL is processed independently and statelessly.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/communityweave/weavebot/confidence"
	"github.com/communityweave/weavebot/excerpt"
	"github.com/communityweave/weavebot/gate"
	"github.com/communityweave/weavebot/models"
	"github.com/communityweave/weavebot/profile"
)

// retryThreshold is the confidence score below which the single wider
// re-extraction pass runs. Its result is final regardless of score.
const retryThreshold = 50

// Renderer produces rendered markup for a URL under a site profile.
type Renderer interface {
	Render(ctx context.Context, url string, p profile.Profile) (*models.RenderResult, error)
}

// RecordService is the external structured-extraction service consuming
// excerpts and returning typed records.
type RecordService interface {
	ExtractEvent(ctx context.Context, excerptText, sourceURL string) (*models.EventRecord, error)
	ExtractUpdate(ctx context.Context, excerptText, sourceURL string) (*models.UpdateRecord, error)
}

// Pipeline is the orchestrator. Construct with New; configuration is
// explicit, never ambient.
type Pipeline struct {
	renderer Renderer
	service  RecordService

	// Stage functions, overridable in tests.
	extract func(html string, p profile.Profile) *models.ExtractedExcerpt
	widen   func(html, sourceURL string, limit int) *models.ExtractedExcerpt
	score   func(text string) models.ConfidenceReport
}

// New creates a Pipeline over a renderer and a structured-extraction
// service.
func New(r Renderer, svc RecordService) *Pipeline {
	return &Pipeline{
		renderer: r,
		service:  svc,
		extract:  excerpt.Extract,
		widen:    excerpt.BodyFallback,
		score:    confidence.Score,
	}
}

// Run drives one URL through the acquisition state machine and returns
// the terminal outcome. It never returns partial intermediate state:
// gated pages short-circuit before extraction, and render failures
// short-circuit before the gate check.
func (pl *Pipeline) Run(ctx context.Context, url string) *models.PipelineOutcome {
	prof := profile.Detect(url)
	slog.Info("pipeline start", "url", url, "profile", prof.Name)

	res, err := pl.renderer.Render(ctx, url, prof)
	if err != nil {
		slog.Warn("pipeline render failed", "url", url, "error", err)
		return &models.PipelineOutcome{Kind: models.OutcomeRenderFailed, Reason: err.Error()}
	}

	if decision := gate.Detect(res.HTML, prof); decision.Gated {
		slog.Info("pipeline gated", "url", url, "profile", prof.Name)
		return &models.PipelineOutcome{Kind: models.OutcomeGated, Rung: res.Rung, Reason: decision.Reason}
	}

	exc := pl.extract(res.HTML, prof)
	report := pl.score(exc.Text)

	if report.Score < retryThreshold {
		slog.Info("pipeline low confidence, re-extracting with body fallback",
			"url", url, "score", report.Score, "missing", report.Missing)
		exc = pl.widen(res.HTML, res.FinalURL, excerpt.BodyFallbackCap)
		report = pl.score(exc.Text)
		// One pass only; this result is final regardless of score.
	}

	slog.Info("pipeline extracted", "url", url,
		"rung", res.Rung, "chars", len(exc.Text),
		"structured", exc.HasStructuredData, "score", report.Score)

	return &models.PipelineOutcome{
		Kind:    models.OutcomeAccessible,
		Excerpt: exc,
		Report:  &report,
		Rung:    res.Rung,
	}
}

// ScrapeEvent runs the pipeline and hands the accepted excerpt to the
// extraction service for an event record. Downstream failures are not
// retried; they surface as a distinct error kind.
func (pl *Pipeline) ScrapeEvent(ctx context.Context, url string) (*models.EventRecord, *models.PipelineOutcome, error) {
	out := pl.Run(ctx, url)
	if err := terminalError(out); err != nil {
		return nil, out, err
	}

	record, err := pl.service.ExtractEvent(ctx, out.Excerpt.Text, url)
	if err != nil {
		return nil, out, models.NewPipelineError(models.ErrCodeDownstream,
			"structured extraction failed", err)
	}
	return record, out, nil
}

// ScrapeUpdate is ScrapeEvent for article/update pages.
func (pl *Pipeline) ScrapeUpdate(ctx context.Context, url string) (*models.UpdateRecord, *models.PipelineOutcome, error) {
	out := pl.Run(ctx, url)
	if err := terminalError(out); err != nil {
		return nil, out, err
	}

	record, err := pl.service.ExtractUpdate(ctx, out.Excerpt.Text, url)
	if err != nil {
		return nil, out, models.NewPipelineError(models.ErrCodeDownstream,
			"structured extraction failed", err)
	}
	return record, out, nil
}

// terminalError converts a non-accessible outcome into its error kind.
// A zero confidence score after the allowed re-extraction means the page
// rendered but carried no usable signal.
func terminalError(out *models.PipelineOutcome) error {
	switch out.Kind {
	case models.OutcomeRenderFailed:
		return models.NewPipelineError(models.ErrCodeRenderFailed, out.Reason, nil)
	case models.OutcomeGated:
		return models.NewPipelineError(models.ErrCodeGated, out.Reason, nil)
	}
	if out.Report != nil && out.Report.Score == 0 {
		return models.NewPipelineError(models.ErrCodeExtractionEmpty,
			"could not find event information on the page", nil)
	}
	return nil
}

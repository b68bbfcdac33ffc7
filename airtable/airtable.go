// Package airtable is the records-store client. It writes accepted
// event and update records and reads them back for the digest. Date
// fields are validated as strict ISO-8601 before write; malformed dates
// are nulled, never passed through.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/communityweave/weavebot/config"
	"github.com/communityweave/weavebot/models"
)

// upcomingWindowDays and recentWindowDays bound the digest queries.
const (
	upcomingWindowDays = 14
	recentWindowDays   = 7
)

// Client talks to the Airtable REST API for the two record tables.
// Outbound calls are rate limited client-side; Airtable enforces 5
// requests per second per base.
type Client struct {
	httpClient *http.Client
	cfg        config.AirtableConfig
	limiter    *rate.Limiter

	// now is injectable for tests building date-window formulas.
	now func() time.Time
}

// NewClient creates a Client. Pass nil to use a default http.Client.
func NewClient(httpClient *http.Client, cfg config.AirtableConfig) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		now:        time.Now,
	}
}

// isoLayouts are the date and date-time shapes accepted as strict
// ISO-8601 at the store boundary.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// IsISODate reports whether s parses as an ISO-8601 date or date-time.
func IsISODate(s string) bool {
	for _, layout := range isoLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// isoOrNil nulls out a date pointer whose value is not strict ISO-8601.
func isoOrNil(s *string) *string {
	if s == nil || !IsISODate(*s) {
		return nil
	}
	return s
}

// InsertEvent writes an event record, mapping record fields to the
// events table columns. Malformed start/end datetimes become null.
func (c *Client) InsertEvent(ctx context.Context, record *models.EventRecord, link string) (*models.StoredRecord, error) {
	fields := map[string]any{
		"Event Title":    deref(record.Title),
		"Description":    deref(record.Description),
		"Start Datetime": deref(isoOrNil(record.Start)),
		"End Datetime":   deref(isoOrNil(record.End)),
		"Location":       deref(record.Location),
		"Link":           link,
	}
	return c.insert(ctx, c.cfg.EventsTable, fields)
}

// InsertUpdate writes an update record to the updates table. Nil fields
// are omitted so Airtable keeps them empty rather than blank strings.
func (c *Client) InsertUpdate(ctx context.Context, record *models.UpdateRecord) (*models.StoredRecord, error) {
	fields := map[string]any{}
	if record.Title != nil {
		fields["Title"] = *record.Title
	}
	if record.Content != nil {
		fields["Content"] = *record.Content
	}
	if record.Source != nil {
		fields["Source"] = *record.Source
	}
	return c.insert(ctx, c.cfg.UpdatesTable, fields)
}

// ListUpcomingEvents returns events starting within the next 14 days,
// soonest first.
func (c *Client) ListUpcomingEvents(ctx context.Context) ([]models.StoredRecord, error) {
	horizon := c.now().AddDate(0, 0, upcomingWindowDays).Format("2006-01-02")
	formula := fmt.Sprintf(
		"AND(IS_AFTER({Start Datetime}, TODAY()), IS_BEFORE({Start Datetime}, '%s'))",
		horizon,
	)
	return c.list(ctx, c.cfg.EventsTable, formula, "Start Datetime", "asc")
}

// ListRecentUpdates returns updates received within the last 7 days,
// newest first. Callers tolerate failure here; the updates table may not
// carry a Received At field.
func (c *Client) ListRecentUpdates(ctx context.Context) ([]models.StoredRecord, error) {
	formula := fmt.Sprintf("DATETIME_DIFF(TODAY(), {Received At}, 'days') <= %d", recentWindowDays)
	return c.list(ctx, c.cfg.UpdatesTable, formula, "Received At", "desc")
}

// EventRecordURL builds the Airtable UI link for an events-table row.
func (c *Client) EventRecordURL(recordID string) string {
	return fmt.Sprintf("https://airtable.com/%s/%s/%s/%s",
		c.cfg.BaseID, c.cfg.EventsTableID, c.cfg.EventsViewID, recordID)
}

// UpdateRecordURL builds the Airtable UI link for an updates-table row.
func (c *Client) UpdateRecordURL(recordID string) string {
	return fmt.Sprintf("https://airtable.com/%s/%s/%s/%s",
		c.cfg.BaseID, c.cfg.UpdatesTableID, c.cfg.UpdatesViewID, recordID)
}

// --- transport ---

type insertRequest struct {
	Fields map[string]any `json:"fields"`
	// Airtable rejects writes with unknown option values unless typecast
	// is set; dates arrive as strings and need the coercion.
	Typecast bool `json:"typecast"`
}

type listResponse struct {
	Records []models.StoredRecord `json:"records"`
}

func (c *Client) insert(ctx context.Context, table string, fields map[string]any) (*models.StoredRecord, error) {
	body, err := json.Marshal(insertRequest{Fields: compact(fields), Typecast: true})
	if err != nil {
		return nil, fmt.Errorf("airtable: marshal record: %w", err)
	}

	respBody, err := c.do(ctx, http.MethodPost, c.tableURL(table), body)
	if err != nil {
		return nil, err
	}

	var record models.StoredRecord
	if err := json.Unmarshal(respBody, &record); err != nil {
		return nil, fmt.Errorf("airtable: parse insert response: %w", err)
	}
	return &record, nil
}

func (c *Client) list(ctx context.Context, table, formula, sortField, sortDir string) ([]models.StoredRecord, error) {
	params := url.Values{}
	params.Set("filterByFormula", formula)
	params.Set("sort[0][field]", sortField)
	params.Set("sort[0][direction]", sortDir)

	respBody, err := c.do(ctx, http.MethodGet, c.tableURL(table)+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var parsed listResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("airtable: parse list response: %w", err)
	}
	return parsed.Records, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("airtable: rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("airtable: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeStore, "airtable request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeStore, "airtable response read failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, models.NewPipelineError(models.ErrCodeStore,
			fmt.Sprintf("airtable status %d: %s", resp.StatusCode, truncateBody(respBody)), nil)
	}
	return respBody, nil
}

func (c *Client) tableURL(table string) string {
	return fmt.Sprintf("%s/%s/%s", c.cfg.BaseURL, c.cfg.BaseID, url.PathEscape(table))
}

// compact drops nil values so nulled dates are omitted from the write.
func compact(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func truncateBody(b []byte) string {
	const max = 200
	if len(b) > max {
		b = b[:max]
	}
	return string(b)
}

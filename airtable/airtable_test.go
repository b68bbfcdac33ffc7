package airtable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/communityweave/weavebot/config"
	"github.com/communityweave/weavebot/models"
)

func TestIsISODate(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"2024-06-10", true},
		{"2024-06-10T19:00", true},
		{"2024-06-10T19:00:00", true},
		{"2024-06-10T19:00:00Z", true},
		{"2024-06-10T19:00:00-06:00", true},
		{"June 10, 2024", false},
		{"6/10/2024", false},
		{"next Tuesday", false},
		{"", false},
		{"2024-13-45", false},
	}

	for _, tt := range tests {
		if got := IsISODate(tt.in); got != tt.want {
			t.Errorf("IsISODate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.AirtableConfig{
		APIKey:            "key-test",
		BaseID:            "appBase",
		BaseURL:           srv.URL,
		EventsTable:       "Events",
		UpdatesTable:      "Updates",
		EventsTableID:     "tblEvents",
		EventsViewID:      "viwEvents",
		UpdatesTableID:    "tblUpdates",
		UpdatesViewID:     "viwUpdates",
		RequestsPerSecond: 100,
	}
	return NewClient(srv.Client(), cfg), srv
}

func strPtr(s string) *string { return &s }

func TestInsertEvent_MalformedDatesAreOmitted(t *testing.T) {
	var got insertRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer key-test" {
			t.Errorf("auth header = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(models.StoredRecord{ID: "recABC"})
	})

	record := &models.EventRecord{
		Title:    strPtr("Launch Party"),
		Start:    strPtr("June 10th at 7pm"), // not ISO, must be dropped
		End:      strPtr("2024-06-10T21:00:00"),
		Location: strPtr("Rayback Collective"),
	}

	stored, err := client.InsertEvent(context.Background(), record, "https://example.com/e/1")
	if err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}
	if stored.ID != "recABC" {
		t.Errorf("stored ID = %q", stored.ID)
	}

	if !got.Typecast {
		t.Error("insert must set typecast")
	}
	if _, present := got.Fields["Start Datetime"]; present {
		t.Errorf("malformed start datetime must be omitted, got %v", got.Fields["Start Datetime"])
	}
	if got.Fields["End Datetime"] != "2024-06-10T21:00:00" {
		t.Errorf("End Datetime = %v", got.Fields["End Datetime"])
	}
	if got.Fields["Event Title"] != "Launch Party" {
		t.Errorf("Event Title = %v", got.Fields["Event Title"])
	}
	if got.Fields["Link"] != "https://example.com/e/1" {
		t.Errorf("Link = %v", got.Fields["Link"])
	}
}

func TestInsertUpdate_NilFieldsOmitted(t *testing.T) {
	var got insertRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(models.StoredRecord{ID: "recDEF"})
	})

	record := &models.UpdateRecord{Content: strPtr("Shipped v2 of the community site.")}
	if _, err := client.InsertUpdate(context.Background(), record); err != nil {
		t.Fatalf("InsertUpdate: %v", err)
	}

	if _, present := got.Fields["Title"]; present {
		t.Error("nil title must be omitted")
	}
	if _, present := got.Fields["Source"]; present {
		t.Error("nil source must be omitted")
	}
	if got.Fields["Content"] != "Shipped v2 of the community site." {
		t.Errorf("Content = %v", got.Fields["Content"])
	}
}

func TestListUpcomingEvents_QueryShape(t *testing.T) {
	var gotQuery map[string]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"filterByFormula":   r.URL.Query().Get("filterByFormula"),
			"sortField":         r.URL.Query().Get("sort[0][field]"),
			"sortDirection":     r.URL.Query().Get("sort[0][direction]"),
			"path":              r.URL.Path,
			"authorizationHead": r.Header.Get("Authorization"),
		}
		json.NewEncoder(w).Encode(listResponse{Records: []models.StoredRecord{{ID: "rec1"}}})
	})
	client.now = func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}

	records, err := client.ListUpcomingEvents(context.Background())
	if err != nil {
		t.Fatalf("ListUpcomingEvents: %v", err)
	}
	if len(records) != 1 || records[0].ID != "rec1" {
		t.Errorf("records = %+v", records)
	}

	wantFormula := "AND(IS_AFTER({Start Datetime}, TODAY()), IS_BEFORE({Start Datetime}, '2024-06-15'))"
	if gotQuery["filterByFormula"] != wantFormula {
		t.Errorf("formula = %q, want %q", gotQuery["filterByFormula"], wantFormula)
	}
	if gotQuery["sortField"] != "Start Datetime" || gotQuery["sortDirection"] != "asc" {
		t.Errorf("sort = %q %q", gotQuery["sortField"], gotQuery["sortDirection"])
	}
	if gotQuery["path"] != "/appBase/Events" {
		t.Errorf("path = %q", gotQuery["path"])
	}
	if gotQuery["authorizationHead"] != "Bearer key-test" {
		t.Errorf("auth = %q", gotQuery["authorizationHead"])
	}
}

func TestListRecentUpdates_FormulaWindow(t *testing.T) {
	var gotFormula string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotFormula = r.URL.Query().Get("filterByFormula")
		json.NewEncoder(w).Encode(listResponse{})
	})

	if _, err := client.ListRecentUpdates(context.Background()); err != nil {
		t.Fatalf("ListRecentUpdates: %v", err)
	}
	want := "DATETIME_DIFF(TODAY(), {Received At}, 'days') <= 7"
	if gotFormula != want {
		t.Errorf("formula = %q, want %q", gotFormula, want)
	}
}

func TestDo_ErrorStatusIsStoreError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"INVALID_REQUEST"}`, http.StatusUnprocessableEntity)
	})

	_, err := client.InsertUpdate(context.Background(), &models.UpdateRecord{Content: strPtr("x")})
	if err == nil {
		t.Fatal("expected error for 422 response")
	}
	perr, ok := err.(*models.PipelineError)
	if !ok || perr.Code != models.ErrCodeStore {
		t.Errorf("err = %v, want STORE_FAILED", err)
	}
}

func TestRecordURLs(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	if got := client.EventRecordURL("recX"); got != "https://airtable.com/appBase/tblEvents/viwEvents/recX" {
		t.Errorf("EventRecordURL = %q", got)
	}
	if got := client.UpdateRecordURL("recY"); got != "https://airtable.com/appBase/tblUpdates/viwUpdates/recY" {
		t.Errorf("UpdateRecordURL = %q", got)
	}
}

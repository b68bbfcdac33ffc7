package ops

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHandler(t *testing.T) {
	counters := &Counters{}
	counters.Scrape()
	counters.Scrape()
	counters.Gated()

	srv := httptest.NewServer(NewServer(counters, time.Now()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var stats map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if got := stats["scrapes_total"].(float64); got != 2 {
		t.Errorf("scrapes_total = %v, want 2", got)
	}
	if got := stats["scrapes_gated"].(float64); got != 1 {
		t.Errorf("scrapes_gated = %v, want 1", got)
	}
}

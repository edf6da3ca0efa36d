package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordScrapeRun(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		duration time.Duration
	}{
		{"success", "success", 2 * time.Second},
		{"locked", "locked", 10 * time.Millisecond},
		{"error", "error", 500 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordScrapeRun(tt.status, tt.duration)
			})
		})
	}
}

func TestRecordHTTPError(t *testing.T) {
	tests := []struct {
		provider  string
		errorType string
	}{
		{"gnews", "timeout"},
		{"rss", "transport"},
		{"searchapi", "5xx"},
	}
	for _, tt := range tests {
		t.Run(tt.provider+"_"+tt.errorType, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordHTTPError(tt.provider, tt.errorType)
			})
		})
	}
}

func TestRecordExtraction(t *testing.T) {
	tests := []struct {
		domain        string
		result        string
		contentLength int
	}{
		{"example.com", "success", 2048},
		{"example.com", "empty_content", 0},
		{"another.com", "timeout", 0},
	}
	for _, tt := range tests {
		t.Run(tt.domain+"_"+tt.result, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordExtraction(tt.domain, tt.result, tt.contentLength)
			})
		})
	}
}

func TestRecordDuplicatesRemoved(t *testing.T) {
	tests := []struct {
		stage string
		count int
	}{
		{"exact_url", 3},
		{"fuzzy", 0},
		{"historical", 10},
	}
	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordDuplicatesRemoved(tt.stage, tt.count)
			})
		})
	}
}

func TestRecordGuardrailEvent(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordGuardrailEvent("max_keywords_per_run", "", "overflow")
		RecordGuardrailEvent("max_total_urls_per_run", "gnews", "capped")
	})
}

func TestRecordPlaywrightFallback(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordPlaywrightFallback("example.com", "not_implemented")
	})
}

func TestRecordProviderDuration(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordProviderDuration("gnews", 1500*time.Millisecond)
	})
}

func TestRecordRequestDuration(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordRequestDuration("htmlsource", "example.com", 250*time.Millisecond)
	})
}

func TestMetricsFunctions_AllCallable(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordScrapeRun("success", time.Second)
		RecordHTTPError("gnews", "timeout")
		RecordExtraction("example.com", "success", 1024)
		RecordDuplicatesRemoved("exact_url", 2)
		RecordGuardrailEvent("max_total_urls_per_run", "rss", "capped")
		RecordPlaywrightFallback("example.com", "not_implemented")
		RecordProviderDuration("rss", 100*time.Millisecond)
		RecordRequestDuration("rss", "example.com", 50*time.Millisecond)
	})
}

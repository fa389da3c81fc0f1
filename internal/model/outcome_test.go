package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDue(t *testing.T) {
	now := time.Now()

	checkedAt := func(ago time.Duration) *time.Time {
		ts := now.Add(-ago)
		return &ts
	}

	tests := []struct {
		name        string
		frequency   Frequency
		lastChecked *time.Time
		active      bool
		want        bool
	}{
		{"never checked is immediately due", FrequencyDaily, nil, true, true},
		{"daily checked 23h ago not due", FrequencyDaily, checkedAt(23 * time.Hour), true, false},
		{"daily checked 25h ago due", FrequencyDaily, checkedAt(25 * time.Hour), true, true},
		{"hourly checked 59m ago not due", FrequencyHourly, checkedAt(59 * time.Minute), true, false},
		{"hourly checked 61m ago due", FrequencyHourly, checkedAt(61 * time.Minute), true, true},
		{"weekly checked 6d ago not due", FrequencyWeekly, checkedAt(6 * 24 * time.Hour), true, false},
		{"weekly checked 8d ago due", FrequencyWeekly, checkedAt(8 * 24 * time.Hour), true, true},
		{"inactive site never due", FrequencyDaily, nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := NewTrackedSite("https://example.com")
			site.Frequency = tt.frequency
			site.LastChecked = tt.lastChecked
			site.IsActive = tt.active
			assert.Equal(t, tt.want, site.Due(now))
		})
	}
}

func TestApplyOutcome_StatisticsInvariant(t *testing.T) {
	site := NewTrackedSite("https://example.com")
	now := time.Now()

	outcomes := []CheckOutcome{
		Updated("hash-1"),
		Unchanged(),
		Failed("Page not found"),
		Unchanged(),
		Failed("Request timeout"),
		Updated("hash-2"),
	}

	for _, outcome := range outcomes {
		site = ApplyOutcome(site, outcome, now)
		assert.Equal(t, site.Statistics.TotalChecks,
			site.Statistics.SuccessfulChecks+site.Statistics.FailedChecks)
	}

	assert.Equal(t, 6, site.Statistics.TotalChecks)
	assert.Equal(t, 4, site.Statistics.SuccessfulChecks)
	assert.Equal(t, 2, site.Statistics.FailedChecks)
}

func TestApplyOutcome_Failed(t *testing.T) {
	site := NewTrackedSite("https://example.com")
	site.LastContentHash = "existing-hash"
	now := time.Now()

	site = ApplyOutcome(site, Failed("Page not found"), now)

	assert.Equal(t, 1, site.Statistics.FailedChecks)
	require.NotNil(t, site.Statistics.LastError)
	assert.Equal(t, "Page not found", site.Statistics.LastError.Message)
	assert.Equal(t, now, site.Statistics.LastError.Timestamp)
	require.NotNil(t, site.LastChecked)
	assert.Equal(t, now, *site.LastChecked)
	// A failed check never touches the content hash.
	assert.Equal(t, "existing-hash", site.LastContentHash)
}

func TestApplyOutcome_Unchanged(t *testing.T) {
	site := NewTrackedSite("https://example.com")
	site.LastContentHash = "existing-hash"
	now := time.Now()

	site = ApplyOutcome(site, Unchanged(), now)

	assert.Equal(t, 1, site.Statistics.SuccessfulChecks)
	assert.Equal(t, "existing-hash", site.LastContentHash)
	require.NotNil(t, site.LastChecked)
	assert.Nil(t, site.Statistics.LastError)
}

func TestApplyOutcome_Updated(t *testing.T) {
	site := NewTrackedSite("https://example.com")
	now := time.Now()

	site = ApplyOutcome(site, Updated("new-hash"), now)

	assert.Equal(t, 1, site.Statistics.SuccessfulChecks)
	assert.Equal(t, "new-hash", site.LastContentHash)
}

func TestSuccessRate(t *testing.T) {
	site := NewTrackedSite("https://example.com")
	assert.Equal(t, float64(0), site.SuccessRate())

	now := time.Now()
	site = ApplyOutcome(site, Unchanged(), now)
	site = ApplyOutcome(site, Unchanged(), now)
	site = ApplyOutcome(site, Unchanged(), now)
	site = ApplyOutcome(site, Failed("boom"), now)

	assert.Equal(t, float64(75), site.SuccessRate())
}

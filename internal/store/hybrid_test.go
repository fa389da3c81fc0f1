package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitewatch/internal/model"
)

func newTestStore(t *testing.T) *HybridStore {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	st, err := NewHybridStore(context.Background(), mr.Addr(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(st.Close)

	return st
}

func TestSaveAndGetSite(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	site := model.NewTrackedSite("https://example.com")
	site.Title = "Example"
	site.Category = model.CategoryTech
	require.NoError(t, st.SaveSite(ctx, &site))

	loaded, err := st.GetSite(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, site.ID, loaded.ID)
	assert.Equal(t, "Example", loaded.Title)
	assert.Equal(t, model.CategoryTech, loaded.Category)
	assert.True(t, loaded.IsActive)
}

func TestGetSite_NotFound(t *testing.T) {
	st := newTestStore(t)

	_, err := st.GetSite(context.Background(), model.NewTrackedSite("x").ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindSiteByURL(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	site := model.NewTrackedSite("https://example.com/blog")
	require.NoError(t, st.SaveSite(ctx, &site))

	found, err := st.FindSiteByURL(ctx, "https://example.com/blog")
	require.NoError(t, err)
	assert.Equal(t, site.ID, found.ID)

	_, err = st.FindSiteByURL(ctx, "https://other.example")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListDue(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	neverChecked := model.NewTrackedSite("https://a.example")
	require.NoError(t, st.SaveSite(ctx, &neverChecked))

	recentlyChecked := model.NewTrackedSite("https://b.example")
	checked := now.Add(-23 * time.Hour)
	recentlyChecked.LastChecked = &checked
	require.NoError(t, st.SaveSite(ctx, &recentlyChecked))

	stale := model.NewTrackedSite("https://c.example")
	staleChecked := now.Add(-25 * time.Hour)
	stale.LastChecked = &staleChecked
	require.NoError(t, st.SaveSite(ctx, &stale))

	inactive := model.NewTrackedSite("https://d.example")
	inactive.IsActive = false
	require.NoError(t, st.SaveSite(ctx, &inactive))

	due, err := st.ListDue(ctx, now)
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, site := range due {
		ids[site.URL] = true
	}
	assert.True(t, ids["https://a.example"])
	assert.True(t, ids["https://c.example"])
	assert.False(t, ids["https://b.example"])
	assert.False(t, ids["https://d.example"])
}

func TestApplyOutcome_PersistsTransition(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	site := model.NewTrackedSite("https://example.com")
	require.NoError(t, st.SaveSite(ctx, &site))

	require.NoError(t, st.ApplyOutcome(ctx, site.ID, model.Updated("hash-1"), now))
	require.NoError(t, st.ApplyOutcome(ctx, site.ID, model.Failed("Request timeout"), now))

	loaded, err := st.GetSite(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Statistics.TotalChecks)
	assert.Equal(t, 1, loaded.Statistics.SuccessfulChecks)
	assert.Equal(t, 1, loaded.Statistics.FailedChecks)
	assert.Equal(t, "hash-1", loaded.LastContentHash)
	require.NotNil(t, loaded.Statistics.LastError)
	assert.Equal(t, "Request timeout", loaded.Statistics.LastError.Message)
}

func newTestSummary() model.Summary {
	site := model.NewTrackedSite("https://example.com/article")
	summary := model.Summary{
		ID:          site.ID,
		SiteID:      site.ID,
		OriginalURL: site.URL,
		Title:       "An Article",
		Content: model.SummaryContent{
			Original:  "the full original body text of the article",
			Summary:   "short summary",
			KeyPoints: []string{"one", "two"},
			WordCount: model.WordCount{Original: 8, Summary: 2},
		},
		Classification: model.Classification{
			Tier:      model.Tier1,
			Category:  model.CategoryTech,
			Tags:      []string{"a", "b"},
			Sentiment: model.SentimentNeutral,
			Urgency:   model.UrgencyHigh,
		},
		Fingerprint: "abc123",
		PublishedAt: time.Now(),
		ExtractedAt: time.Now(),
	}
	return summary
}

func TestSaveAndGetSummary_RoundTripsOriginalContent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	summary := newTestSummary()
	require.NoError(t, st.SaveSummary(ctx, &summary))

	loaded, err := st.GetSummary(ctx, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, "An Article", loaded.Title)
	// The heavy original text lives in Badger and comes back on reads.
	assert.Equal(t, "the full original body text of the article", loaded.Content.Original)
	assert.Equal(t, model.Tier1, loaded.Classification.Tier)
	assert.Equal(t, "abc123", loaded.Fingerprint)
}

func TestListRecentSummaries_MetadataOnly(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	summary := newTestSummary()
	require.NoError(t, st.SaveSummary(ctx, &summary))

	list, err := st.ListRecentSummaries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "short summary", list[0].Content.Summary)
	// Listing skips the Badger content fetch.
	assert.Empty(t, list[0].Content.Original)
}

func TestListSiteSummaries_FiltersBySite(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	mine := newTestSummary()
	require.NoError(t, st.SaveSummary(ctx, &mine))

	other := newTestSummary()
	other.ID = uuid.New()
	other.SiteID = uuid.New()
	require.NoError(t, st.SaveSummary(ctx, &other))

	list, err := st.ListSiteSummaries(ctx, mine.SiteID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)
	assert.Empty(t, list[0].Content.Original)

	// A site with no summaries yields an empty list, not an error.
	empty, err := st.ListSiteSummaries(ctx, uuid.New(), 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSaveSummary_RedisOnlyModeRejectsContent(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	st, err := NewHybridStore(context.Background(), mr.Addr(), "")
	require.NoError(t, err)
	defer st.Close()

	summary := newTestSummary()
	err = st.SaveSummary(context.Background(), &summary)
	assert.Error(t, err)
}

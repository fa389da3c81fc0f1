package model

import (
	"time"

	"github.com/google/uuid"
)

// Category is the closed set of content categories a site can belong to.
type Category string

const (
	CategoryBusiness      Category = "business"
	CategoryTech          Category = "tech"
	CategoryFinance       Category = "finance"
	CategoryHealth        Category = "health"
	CategorySports        Category = "sports"
	CategoryEntertainment Category = "entertainment"
	CategoryPolitics      Category = "politics"
	CategoryScience       Category = "science"
	CategoryOther         Category = "other"
)

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryBusiness, CategoryTech, CategoryFinance, CategoryHealth,
		CategorySports, CategoryEntertainment, CategoryPolitics, CategoryScience, CategoryOther:
		return true
	}
	return false
}

// Frequency controls how often a site is checked.
type Frequency string

const (
	FrequencyHourly Frequency = "hourly"
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// Interval returns the minimum gap between two checks for this frequency.
// Unknown values fall back to daily.
func (f Frequency) Interval() time.Duration {
	switch f {
	case FrequencyHourly:
		return time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// ExtractionRules are per-site overrides for the content extractor.
type ExtractionRules struct {
	TitleSelector    string   `json:"title_selector,omitempty" yaml:"titleSelector"`
	ContentSelector  string   `json:"content_selector,omitempty" yaml:"contentSelector"`
	ExcludeSelectors []string `json:"exclude_selectors,omitempty" yaml:"excludeSelectors"`
}

// LastError records the most recent failed check for a site.
type LastError struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Statistics tracks check outcomes for a site.
// TotalChecks always equals SuccessfulChecks + FailedChecks.
type Statistics struct {
	TotalChecks      int        `json:"total_checks"`
	SuccessfulChecks int        `json:"successful_checks"`
	FailedChecks     int        `json:"failed_checks"`
	LastError        *LastError `json:"last_error,omitempty"`
}

// SiteMetadata is descriptive data captured when the site is registered.
type SiteMetadata struct {
	Description   string     `json:"description,omitempty"`
	Favicon       string     `json:"favicon,omitempty"`
	Language      string     `json:"language,omitempty"`
	LastModified  *time.Time `json:"last_modified,omitempty"`
	ContentLength int        `json:"content_length,omitempty"`
	WordCount     int        `json:"word_count,omitempty"`
}

// TrackedSite is one monitored URL.
type TrackedSite struct {
	ID              uuid.UUID       `json:"id"`
	UserID          string          `json:"user_id"`
	URL             string          `json:"url"`
	Title           string          `json:"title"`
	Category        Category        `json:"category"`
	Frequency       Frequency       `json:"monitoring_frequency"`
	IsActive        bool            `json:"is_active"`
	Rules           ExtractionRules `json:"extraction_rules"`
	Metadata        SiteMetadata    `json:"metadata"`
	LastChecked     *time.Time      `json:"last_checked,omitempty"`
	LastContentHash string          `json:"last_content_hash,omitempty"`
	Statistics      Statistics      `json:"statistics"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewTrackedSite creates a site with the given URL and default values.
func NewTrackedSite(rawURL string) TrackedSite {
	return TrackedSite{
		ID:        uuid.New(),
		URL:       rawURL,
		Category:  CategoryOther,
		Frequency: FrequencyDaily,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// SuccessRate returns the percentage of checks that succeeded.
func (s *TrackedSite) SuccessRate() float64 {
	if s.Statistics.TotalChecks == 0 {
		return 0
	}
	return float64(s.Statistics.SuccessfulChecks) / float64(s.Statistics.TotalChecks) * 100
}

// Due reports whether the site's monitoring interval has elapsed at now.
// Sites that were never checked are immediately due; inactive sites never are.
func (s *TrackedSite) Due(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	if s.LastChecked == nil {
		return true
	}
	return now.Sub(*s.LastChecked) >= s.Frequency.Interval()
}

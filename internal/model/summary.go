package model

import (
	"time"

	"github.com/google/uuid"
)

// Tier is the classifier-assigned priority of a summary.
type Tier string

const (
	Tier1 Tier = "tier1" // critical, urgent
	Tier2 Tier = "tier2" // routine, informational
)

// Sentiment is the overall tone of the classified content.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Urgency grades how time-sensitive the content is.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Classification is the structured verdict attached to a summary.
type Classification struct {
	Tier      Tier      `json:"tier"`
	Category  Category  `json:"category"`
	Tags      []string  `json:"tags"`
	Sentiment Sentiment `json:"sentiment"`
	Urgency   Urgency   `json:"urgency"`
}

// AIMetadata describes the classifier call that produced a result.
type AIMetadata struct {
	Model          string        `json:"model"`
	ProcessingTime time.Duration `json:"processing_time"`
	Confidence     float64       `json:"confidence"`
	Reasoning      string        `json:"reasoning,omitempty"`
}

// ClassificationResult is the full output of the classifier client.
// It is always fully populated: unparseable upstream responses are replaced
// by a deterministic fallback instead of an error.
type ClassificationResult struct {
	Summary        string         `json:"summary"`
	KeyPoints      []string       `json:"key_points"`
	Classification Classification `json:"classification"`
	Metadata       AIMetadata     `json:"metadata"`
}

// WordCount pairs the sizes of the original and summarized text.
type WordCount struct {
	Original int `json:"original"`
	Summary  int `json:"summary"`
}

// SummaryContent holds the text payload of a summary record.
// Original is the heavy field and is stored separately from the metadata.
type SummaryContent struct {
	Original  string    `json:"original,omitempty"`
	Summary   string    `json:"summary"`
	KeyPoints []string  `json:"key_points"`
	WordCount WordCount `json:"word_count"`
}

// UserFeedback is attached to a summary later by the reader, never by the
// monitoring pipeline.
type UserFeedback struct {
	Rating       int        `json:"rating,omitempty"`
	IsInterested *bool      `json:"is_interested,omitempty"`
	Feedback     string     `json:"feedback,omitempty"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
}

// Summary is one unit of new, changed content captured for a site.
type Summary struct {
	ID             uuid.UUID      `json:"id"`
	UserID         string         `json:"user_id"`
	SiteID         uuid.UUID      `json:"site_id"`
	OriginalURL    string         `json:"original_url"`
	Title          string         `json:"title"`
	Content        SummaryContent `json:"content"`
	Classification Classification `json:"classification"`
	AIMetadata     AIMetadata     `json:"ai_metadata"`
	Fingerprint    string         `json:"fingerprint"`
	UserFeedback   *UserFeedback  `json:"user_feedback,omitempty"`
	IsRead         bool           `json:"is_read"`
	IsArchived     bool           `json:"is_archived"`
	PublishedAt    time.Time      `json:"published_at"`
	ExtractedAt    time.Time      `json:"extracted_at"`
}

// ExtractedContent is the ephemeral product of one fetch+extract pass.
type ExtractedContent struct {
	Title         string
	Body          string
	WordCount     int
	ContentLength int
	LastModified  *time.Time
	FetchedAt     time.Time
}

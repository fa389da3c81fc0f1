package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"sitewatch/internal/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("site already tracked")
)

// SiteStore persists tracked sites and their monitoring state.
type SiteStore interface {
	SaveSite(ctx context.Context, site *model.TrackedSite) error
	GetSite(ctx context.Context, id uuid.UUID) (*model.TrackedSite, error)
	ListSites(ctx context.Context) ([]model.TrackedSite, error)
	ListDue(ctx context.Context, now time.Time) ([]model.TrackedSite, error)
	ApplyOutcome(ctx context.Context, id uuid.UUID, outcome model.CheckOutcome, now time.Time) error
}

// SummaryStore appends and reads summary records.
type SummaryStore interface {
	SaveSummary(ctx context.Context, summary *model.Summary) error
	GetSummary(ctx context.Context, id uuid.UUID) (*model.Summary, error)
	ListRecentSummaries(ctx context.Context, limit int) ([]model.Summary, error)
	ListSiteSummaries(ctx context.Context, siteID uuid.UUID, limit int) ([]model.Summary, error)
}

// Store is the full persistence boundary consumed by the monitor and the
// operational server.
type Store interface {
	SiteStore
	SummaryStore
	Close()
}

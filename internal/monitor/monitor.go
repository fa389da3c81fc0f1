// Package monitor drives the check pipeline for tracked sites: it decides
// which sites are due, runs fetch → extract → change-detect → classify for
// each one under a bounded worker pool, and records the outcome.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sitewatch/internal/config"
	"sitewatch/internal/fetch"
	"sitewatch/internal/fingerprint"
	"sitewatch/internal/model"
	"sitewatch/internal/store"
)

// Fetcher retrieves a page for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Response, error)
}

// Extractor turns raw HTML into title and body text.
type Extractor interface {
	Extract(html string, rules model.ExtractionRules) model.ExtractedContent
}

// Classifier summarizes and classifies extracted content. It never fails;
// upstream problems degrade to a fallback result.
type Classifier interface {
	Classify(ctx context.Context, title, content string, category model.Category) model.ClassificationResult
}

// Monitor owns the scheduling loop and the per-site check pipeline.
type Monitor struct {
	store      store.Store
	fetcher    Fetcher
	extractor  Extractor
	classifier Classifier
	logger     *zap.Logger

	tickInterval time.Duration
	tickBudget   time.Duration
	concurrency  int

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// New wires the pipeline components into a monitor.
func New(st store.Store, f Fetcher, e Extractor, c Classifier, cfg config.MonitorConfig, logger *zap.Logger) *Monitor {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	tickInterval := cfg.TickInterval
	if tickInterval <= 0 {
		tickInterval = 5 * time.Minute
	}

	return &Monitor{
		store:        st,
		fetcher:      f,
		extractor:    e,
		classifier:   c,
		logger:       logger,
		tickInterval: tickInterval,
		tickBudget:   cfg.TickBudget,
		concurrency:  concurrency,
		locks:        make(map[uuid.UUID]*sync.Mutex),
	}
}

// Run executes scheduler ticks until ctx is cancelled. The first tick runs
// immediately.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("monitor started",
		zap.Duration("tick_interval", m.tickInterval),
		zap.Int("concurrency", m.concurrency))

	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()

	if err := m.RunTick(ctx); err != nil {
		m.logger.Error("tick failed", zap.Error(err))
	}

	for {
		select {
		case <-ticker.C:
			if err := m.RunTick(ctx); err != nil {
				m.logger.Error("tick failed", zap.Error(err))
			}
		case <-ctx.Done():
			m.logger.Info("monitor shutting down")
			return
		}
	}
}

// RunTick checks every due site once, in parallel up to the concurrency
// limit. Individual site failures are recorded against that site and never
// abort the pass; only an unreachable store aborts the tick.
func (m *Monitor) RunTick(ctx context.Context) error {
	if m.tickBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.tickBudget)
		defer cancel()
	}

	now := time.Now()
	due, err := m.store.ListDue(ctx, now)
	if err != nil {
		return fmt.Errorf("list due sites: %w", err)
	}

	m.logger.Info("tick started", zap.Int("due_sites", len(due)))

	sem := make(chan struct{}, m.concurrency)
	var wg sync.WaitGroup
	var skipped, failed int64
	var counterMu sync.Mutex

	for i := range due {
		site := due[i]

		lock := m.siteLock(site.ID)
		if !lock.TryLock() {
			// A check for this site is still running from a previous
			// tick or a manual trigger; never run two at once.
			counterMu.Lock()
			skipped++
			counterMu.Unlock()
			m.logger.Debug("skipping site, check already in flight",
				zap.String("site_id", site.ID.String()))
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer lock.Unlock()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			// The ListDue snapshot may predate a check that finished after
			// it was taken. Re-load under the lock so the hash comparison
			// and the due decision use current state.
			fresh, err := m.store.GetSite(ctx, site.ID)
			if err != nil {
				counterMu.Lock()
				failed++
				counterMu.Unlock()
				m.logger.Warn("site reload failed",
					zap.String("site_id", site.ID.String()),
					zap.Error(err))
				return
			}
			if !fresh.Due(time.Now()) {
				counterMu.Lock()
				skipped++
				counterMu.Unlock()
				m.logger.Debug("site no longer due",
					zap.String("site_id", site.ID.String()))
				return
			}

			if _, err := m.check(ctx, fresh); err != nil {
				counterMu.Lock()
				failed++
				counterMu.Unlock()
				m.logger.Warn("site check failed",
					zap.String("site_id", site.ID.String()),
					zap.String("url", site.URL),
					zap.Error(err))
			}
		}()
	}

	wg.Wait()

	m.logger.Info("tick completed",
		zap.Int("due_sites", len(due)),
		zap.Int64("skipped", skipped),
		zap.Int64("failed", failed),
		zap.Duration("elapsed", time.Since(now)))
	return nil
}

// CheckResult is the outcome of one manually triggered check.
type CheckResult struct {
	Outcome model.CheckOutcome
	Summary *model.Summary // set when Outcome is Updated
}

// CheckSite runs a single check for one site, sharing the same at-most-one
// in-flight guarantee as scheduled checks. A concurrent check for the same
// site blocks until the running one finishes, then executes.
func (m *Monitor) CheckSite(ctx context.Context, id uuid.UUID) (*CheckResult, error) {
	lock := m.siteLock(id)
	lock.Lock()
	defer lock.Unlock()

	site, err := m.store.GetSite(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.check(ctx, site)
}

// siteLock returns the per-site mutex guaranteeing at most one in-flight
// check per site id.
func (m *Monitor) siteLock(id uuid.UUID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	return lock
}

// check runs the full pipeline for one site. The stages execute strictly in
// sequence; every attempt, success or failure, moves lastChecked forward.
func (m *Monitor) check(ctx context.Context, site *model.TrackedSite) (*CheckResult, error) {
	logger := m.logger.With(
		zap.String("site_id", site.ID.String()),
		zap.String("url", site.URL))
	logger.Debug("check started")

	resp, err := m.fetcher.Fetch(ctx, site.URL)
	if err != nil {
		outcome := model.Failed(err.Error())
		if applyErr := m.store.ApplyOutcome(ctx, site.ID, outcome, time.Now()); applyErr != nil {
			return nil, fmt.Errorf("record fetch failure: %w", applyErr)
		}
		logger.Info("check failed", zap.String("reason", err.Error()))
		return &CheckResult{Outcome: outcome}, nil
	}

	content := m.extractor.Extract(resp.Body, site.Rules)
	content.LastModified = resp.LastModified
	content.FetchedAt = resp.FetchedAt

	hash := fingerprint.Hash(content.Body)
	if !fingerprint.Changed(hash, site.LastContentHash) {
		outcome := model.Unchanged()
		if err := m.store.ApplyOutcome(ctx, site.ID, outcome, time.Now()); err != nil {
			return nil, fmt.Errorf("record unchanged check: %w", err)
		}
		logger.Debug("content unchanged")
		return &CheckResult{Outcome: outcome}, nil
	}

	// Content changed: classify (never fails) and persist the summary
	// before advancing the stored hash, so a persistence failure leaves
	// the change detectable on the next tick.
	result := m.classifier.Classify(ctx, content.Title, content.Body, site.Category)
	summary := buildSummary(site, content, hash, result)

	if err := m.store.SaveSummary(ctx, &summary); err != nil {
		outcome := model.Failed("save summary: " + err.Error())
		if applyErr := m.store.ApplyOutcome(ctx, site.ID, outcome, time.Now()); applyErr != nil {
			return nil, fmt.Errorf("record summary failure: %w", applyErr)
		}
		return nil, fmt.Errorf("save summary: %w", err)
	}

	outcome := model.Updated(hash)
	if err := m.store.ApplyOutcome(ctx, site.ID, outcome, time.Now()); err != nil {
		return nil, fmt.Errorf("record updated check: %w", err)
	}

	logger.Info("new content summarized",
		zap.String("summary_id", summary.ID.String()),
		zap.String("tier", string(result.Classification.Tier)),
		zap.Float64("confidence", result.Metadata.Confidence))
	return &CheckResult{Outcome: outcome, Summary: &summary}, nil
}

// buildSummary assembles the persisted record for one detected change.
func buildSummary(site *model.TrackedSite, content model.ExtractedContent, hash string, result model.ClassificationResult) model.Summary {
	now := time.Now()
	return model.Summary{
		ID:          uuid.New(),
		UserID:      site.UserID,
		SiteID:      site.ID,
		OriginalURL: site.URL,
		Title:       content.Title,
		Content: model.SummaryContent{
			Original:  content.Body,
			Summary:   result.Summary,
			KeyPoints: result.KeyPoints,
			WordCount: model.WordCount{
				Original: content.WordCount,
				Summary:  len(strings.Fields(result.Summary)),
			},
		},
		Classification: result.Classification,
		AIMetadata:     result.Metadata,
		Fingerprint:    hash,
		PublishedAt:    now,
		ExtractedAt:    content.FetchedAt,
	}
}

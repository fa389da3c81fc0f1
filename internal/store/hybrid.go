package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"sitewatch/internal/model"
)

const (
	siteKeyPrefix    = "site:"
	siteIndexKey     = "sites:index"
	summaryKeyPrefix = "summary:"
	recentListKey    = "summaries:recent"
	recentListMax    = 49 // keep the last 50 summaries on the recent list
)

// HybridStore combines Redis (site state, summary metadata, recency lists)
// and Badger (heavy original-content blobs, gzip-compressed).
type HybridStore struct {
	rdb    *redis.Client
	db     *badger.DB
	gcStop chan struct{}
}

var _ Store = (*HybridStore)(nil)

// NewHybridStore connects both databases. The initial Redis ping retries
// with backoff so a briefly unavailable Redis does not kill startup.
// Pass badgerPath="" for a Redis-only client mode that never touches
// summary content (used by the registration CLI).
func NewHybridStore(ctx context.Context, redisAddr, badgerPath string) (*HybridStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})

	err := retry.Do(
		func() error { return rdb.Ping(ctx).Err() },
		retry.Attempts(5),
		retry.Delay(500*time.Millisecond),
		retry.MaxDelay(10*time.Second),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	s := &HybridStore{rdb: rdb, gcStop: make(chan struct{})}
	if badgerPath != "" {
		opts := badger.DefaultOptions(badgerPath)
		opts.Logger = nil
		s.db, err = badger.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("open badger: %w", err)
		}
		go s.valueLogGC()
	}

	return s, nil
}

// valueLogGC reclaims Badger value-log space periodically until Close.
func (s *HybridStore) valueLogGC() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			// ErrNoRewrite just means nothing to collect this round.
			_ = s.db.RunValueLogGC(0.7)
		case <-s.gcStop:
			return
		}
	}
}

// Close releases both database handles.
func (s *HybridStore) Close() {
	close(s.gcStop)
	if s.rdb != nil {
		s.rdb.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

// SaveSite writes the full site record and keeps it on the index.
func (s *HybridStore) SaveSite(ctx context.Context, site *model.TrackedSite) error {
	data, err := json.Marshal(site)
	if err != nil {
		return fmt.Errorf("marshal site: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, siteKeyPrefix+site.ID.String(), data, 0)
	pipe.SAdd(ctx, siteIndexKey, site.ID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save site: %w", err)
	}
	return nil
}

// GetSite loads one site by id.
func (s *HybridStore) GetSite(ctx context.Context, id uuid.UUID) (*model.TrackedSite, error) {
	val, err := s.rdb.Get(ctx, siteKeyPrefix+id.String()).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	var site model.TrackedSite
	if err := json.Unmarshal(val, &site); err != nil {
		return nil, fmt.Errorf("unmarshal site %s: %w", id, err)
	}
	return &site, nil
}

// FindSiteByURL returns the tracked site with the given URL, if any.
func (s *HybridStore) FindSiteByURL(ctx context.Context, rawURL string) (*model.TrackedSite, error) {
	sites, err := s.ListSites(ctx)
	if err != nil {
		return nil, err
	}
	for i := range sites {
		if sites[i].URL == rawURL {
			return &sites[i], nil
		}
	}
	return nil, ErrNotFound
}

// ListSites returns every tracked site.
func (s *HybridStore) ListSites(ctx context.Context) ([]model.TrackedSite, error) {
	ids, err := s.rdb.SMembers(ctx, siteIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list site index: %w", err)
	}

	sites := make([]model.TrackedSite, 0, len(ids))
	for _, idStr := range ids {
		val, err := s.rdb.Get(ctx, siteKeyPrefix+idStr).Bytes()
		if err == redis.Nil {
			continue // index entry without a record; skip
		} else if err != nil {
			return nil, err
		}

		var site model.TrackedSite
		if err := json.Unmarshal(val, &site); err == nil {
			sites = append(sites, site)
		}
	}
	return sites, nil
}

// ListDue returns the active sites whose monitoring interval has elapsed.
func (s *HybridStore) ListDue(ctx context.Context, now time.Time) ([]model.TrackedSite, error) {
	sites, err := s.ListSites(ctx)
	if err != nil {
		return nil, err
	}

	due := make([]model.TrackedSite, 0, len(sites))
	for _, site := range sites {
		if site.Due(now) {
			due = append(due, site)
		}
	}
	return due, nil
}

// ApplyOutcome folds one check outcome into a site's statistics and
// monitoring state. The read-modify-write is safe because the monitor
// guarantees at most one in-flight check per site.
func (s *HybridStore) ApplyOutcome(ctx context.Context, id uuid.UUID, outcome model.CheckOutcome, now time.Time) error {
	site, err := s.GetSite(ctx, id)
	if err != nil {
		return err
	}

	updated := model.ApplyOutcome(*site, outcome, now)
	return s.SaveSite(ctx, &updated)
}

// SaveSummary inserts a new summary: metadata to Redis, the heavy original
// text gzip-compressed into Badger.
func (s *HybridStore) SaveSummary(ctx context.Context, summary *model.Summary) error {
	meta := *summary
	original := meta.Content.Original
	meta.Content.Original = ""

	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, summaryKeyPrefix+summary.ID.String(), data, 0)
	pipe.LPush(ctx, recentListKey, summary.ID.String())
	pipe.LTrim(ctx, recentListKey, 0, recentListMax)
	pipe.LPush(ctx, siteKeyPrefix+summary.SiteID.String()+":summaries", summary.ID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save summary metadata: %w", err)
	}

	if original == "" {
		return nil
	}
	if s.db == nil {
		return fmt.Errorf("cannot save summary content: badger is not initialized")
	}

	compressed, err := gzipBytes(original)
	if err != nil {
		return fmt.Errorf("compress summary content: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(summary.ID.String()), compressed)
	})
	if err != nil {
		return fmt.Errorf("save summary content: %w", err)
	}
	return nil
}

// GetSummary loads one summary including its original content when Badger
// is available.
func (s *HybridStore) GetSummary(ctx context.Context, id uuid.UUID) (*model.Summary, error) {
	val, err := s.rdb.Get(ctx, summaryKeyPrefix+id.String()).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	var summary model.Summary
	if err := json.Unmarshal(val, &summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary %s: %w", id, err)
	}

	if s.db != nil {
		err = s.db.View(func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(id.String()))
			if err != nil {
				return err
			}
			return item.Value(func(val []byte) error {
				original, err := gunzipBytes(val)
				if err != nil {
					return err
				}
				summary.Content.Original = original
				return nil
			})
		})
		if err != nil && err != badger.ErrKeyNotFound {
			return nil, err
		}
	}

	return &summary, nil
}

// ListRecentSummaries returns the newest summaries, metadata only.
func (s *HybridStore) ListRecentSummaries(ctx context.Context, limit int) ([]model.Summary, error) {
	return s.summariesFromList(ctx, recentListKey, limit)
}

// ListSiteSummaries returns the newest summaries for one site, metadata only.
func (s *HybridStore) ListSiteSummaries(ctx context.Context, siteID uuid.UUID, limit int) ([]model.Summary, error) {
	return s.summariesFromList(ctx, siteKeyPrefix+siteID.String()+":summaries", limit)
}

func (s *HybridStore) summariesFromList(ctx context.Context, key string, limit int) ([]model.Summary, error) {
	ids, err := s.rdb.LRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	summaries := make([]model.Summary, 0, len(ids))
	for _, idStr := range ids {
		val, err := s.rdb.Get(ctx, summaryKeyPrefix+idStr).Bytes()
		if err == redis.Nil {
			continue
		} else if err != nil {
			return nil, err
		}

		var summary model.Summary
		if err := json.Unmarshal(val, &summary); err == nil {
			summaries = append(summaries, summary)
		}
	}
	return summaries, nil
}

func gzipBytes(text string) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := io.WriteString(w, text); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzipBytes(data []byte) (string, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

package stats

import (
	"context"
	"time"

	"github.com/socialshields/mhdash/internal/db"
	"github.com/socialshields/mhdash/internal/models"
	"github.com/socialshields/mhdash/pkg/config"
)

// Progress is the labeled/total ratio shown on the dashboard. Labeled counts
// distinct posts, so duplicate label rows cannot inflate it.
type Progress struct {
	Labeled int64 `json:"labeled"`
	Total   int64 `json:"total"`
}

// Snapshot is the aggregate payload served by GET /api/stats.
type Snapshot struct {
	PostsPerHour     []models.HourlyBucket `json:"postsPerHour"`
	CommentsPerHour  []models.HourlyBucket `json:"commentsPerHour"`
	LabelingProgress Progress              `json:"labelingProgress"`
	Now              time.Time             `json:"now"`
	FromStaleCache   bool                  `json:"fromStaleCache,omitempty"`
}

// Service assembles dashboard snapshots from the aggregate cache. The hourly
// series refresh every 20 minutes by default; labeling progress every 12
// hours, since label counts move far slower than the ingestion counters.
type Service struct {
	cache *Cache
	now   func() time.Time
}

// NewService wires the three aggregate queries into a cache. now is
// injectable for tests; pass nil for the wall clock.
func NewService(
	statsRepo *db.StatsRepository,
	labelRepo *db.LabelRepository,
	postRepo *db.PostRepository,
	cfg *config.CacheConfig,
	now func() time.Time,
) *Service {
	if now == nil {
		now = time.Now
	}
	cache := NewCache(now)

	cache.Register(KeyPostsPerHour, cfg.HourlyTTL, func(ctx context.Context) (interface{}, error) {
		return statsRepo.PostsPerHour(ctx)
	})
	cache.Register(KeyCommentsPerHour, cfg.HourlyTTL, func(ctx context.Context) (interface{}, error) {
		return statsRepo.CommentsPerHour(ctx)
	})
	cache.Register(KeyLabelingProgress, cfg.ProgressTTL, func(ctx context.Context) (interface{}, error) {
		labeled, err := labelRepo.CountDistinctLabeled(ctx)
		if err != nil {
			return nil, err
		}
		total, err := postRepo.CountTotal(ctx)
		if err != nil {
			return nil, err
		}
		return Progress{Labeled: labeled, Total: total}, nil
	})

	return &Service{cache: cache, now: now}
}

// Snapshot builds the full stats payload. Keys are fetched independently;
// any key served stale marks the whole snapshot FromStaleCache. The call
// fails only when a key has never been populated and its refresh fails.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{Now: s.now()}

	posts, stale, err := s.cache.Get(ctx, KeyPostsPerHour)
	if err != nil {
		return nil, err
	}
	snap.PostsPerHour = posts.([]models.HourlyBucket)
	snap.FromStaleCache = snap.FromStaleCache || stale

	comments, stale, err := s.cache.Get(ctx, KeyCommentsPerHour)
	if err != nil {
		return nil, err
	}
	snap.CommentsPerHour = comments.([]models.HourlyBucket)
	snap.FromStaleCache = snap.FromStaleCache || stale

	progress, stale, err := s.cache.Get(ctx, KeyLabelingProgress)
	if err != nil {
		return nil, err
	}
	snap.LabelingProgress = progress.(Progress)
	snap.FromStaleCache = snap.FromStaleCache || stale

	return snap, nil
}

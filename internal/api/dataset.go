package api

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/socialshields/mhdash/internal/cache"
	"github.com/socialshields/mhdash/internal/db"
)

// datasetSummary is the non-download response of GET /api/dataset.
type datasetSummary struct {
	TotalLabeled       int64                       `json:"totalLabeled"`
	UniqueContributors int64                       `json:"uniqueContributors"`
	LastUpdated        *time.Time                  `json:"lastUpdated"`
	LabelDistribution  map[string]map[string]int64 `json:"labelDistribution"`
}

// getDataset handles GET /api/dataset?format=csv|json&download=true|false.
// Without download it returns dataset statistics; with download it streams
// the full label dataset. Both payloads scan the whole label table, so they
// are cached in Redis when it is configured.
func (r *Router) getDataset(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	download := c.DefaultQuery("download", "false") == "true"
	ctx := c.Request.Context()

	if !download {
		summary, err := r.loadDatasetSummary(ctx)
		if err != nil {
			r.logger.Error("Failed to build dataset summary", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "failed to load dataset statistics")
			return
		}
		c.JSON(http.StatusOK, summary)
		return
	}

	rows, err := r.loadExportRows(ctx)
	if err != nil {
		r.logger.Error("Failed to export dataset", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to export dataset")
		return
	}

	if format == "json" {
		c.Header("Content-Disposition", "attachment; filename=mental_health_dataset.json")
		c.JSON(http.StatusOK, gin.H{
			"metadata": gin.H{
				"totalRecords": len(rows),
				"exportDate":   time.Now().UTC().Format(time.RFC3339),
			},
			"data": rows,
		})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=mental_health_dataset.csv")
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"post_hash", "box1", "box2"})
	for _, row := range rows {
		_ = w.Write([]string{row.PostHash, row.Box1, row.Box2})
	}
	w.Flush()
}

func (r *Router) loadDatasetSummary(ctx context.Context) (*datasetSummary, error) {
	cacheKey := cache.HashKey("dataset", "summary")
	var cached datasetSummary
	if err := r.cache.GetJSON(cacheKey, &cached); err == nil {
		return &cached, nil
	}

	stats, err := r.labels.Stats(ctx)
	if err != nil {
		return nil, err
	}

	distribution := make(map[string]map[string]int64, 2)
	for _, column := range []string{"box1", "box2"} {
		counts, err := r.labels.Distribution(ctx, column)
		if err != nil {
			return nil, err
		}
		buckets := make(map[string]int64, len(counts))
		for _, lc := range counts {
			buckets[lc.Value] = lc.Count
		}
		distribution[column] = buckets
	}

	summary := &datasetSummary{
		TotalLabeled:       stats.TotalLabeled,
		UniqueContributors: stats.UniqueContributors,
		LastUpdated:        stats.LastUpdated,
		LabelDistribution:  distribution,
	}

	if err := r.cache.SetJSON(cacheKey, summary, r.cfg.Cache.DatasetTTL); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		r.logger.Warn("Failed to cache dataset summary", zap.Error(err))
	}
	return summary, nil
}

func (r *Router) loadExportRows(ctx context.Context) ([]db.ExportRow, error) {
	cacheKey := cache.HashKey("dataset", "export")
	var cached []db.ExportRow
	if err := r.cache.GetJSON(cacheKey, &cached); err == nil {
		return cached, nil
	}

	rows, err := r.labels.Export(ctx)
	if err != nil {
		return nil, err
	}

	if err := r.cache.SetJSON(cacheKey, rows, r.cfg.Cache.DatasetTTL); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		r.logger.Warn("Failed to cache dataset export", zap.Error(err))
	}
	return rows, nil
}

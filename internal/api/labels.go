package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/socialshields/mhdash/internal/models"
)

// getUnlabelledPosts handles GET /api/unlabelled_posts?username=U. Returns
// up to the configured page size of posts the user has not labeled yet, in
// random order. An empty list means the user is done, not an error.
func (r *Router) getUnlabelledPosts(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		respondError(c, http.StatusBadRequest, "username is required")
		return
	}

	posts, err := r.posts.UnlabelledForUser(c.Request.Context(), username, r.cfg.Labeling.PageSize)
	if err != nil {
		r.logger.Error("Failed to fetch unlabelled posts",
			zap.String("username", username), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to fetch posts")
		return
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// getRandomPosts handles GET /api/random_posts: a small anonymous sample
// with no per-user exclusion.
func (r *Router) getRandomPosts(c *gin.Context) {
	posts, err := r.posts.RandomSample(c.Request.Context(), r.cfg.Labeling.SampleSize)
	if err != nil {
		r.logger.Error("Failed to fetch random posts", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to fetch posts")
		return
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

type labelItem struct {
	Hash string `json:"hash" binding:"required"`
	Box1 string `json:"box1" binding:"required"`
	Box2 string `json:"box2" binding:"required"`
}

type submitLabelsRequest struct {
	Username string      `json:"username" binding:"required"`
	Labels   []labelItem `json:"labels" binding:"required,min=1,dive"`
}

// submitLabels handles POST /api/submit_labels. The whole batch is written
// in one transaction and every row carries the same timestamp, computed once
// per request. Category values are validated server-side; the client-side
// completeness gate is a convenience, not the integrity boundary.
func (r *Router) submitLabels(c *gin.Context) {
	var req submitLabelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "labels must be a non-empty list and username is required")
		return
	}

	for i, item := range req.Labels {
		if !models.ValidBox1(item.Box1) {
			respondError(c, http.StatusBadRequest, fmt.Sprintf("labels[%d]: unknown box1 value %q", i, item.Box1))
			return
		}
		if !models.ValidBox2(item.Box2) {
			respondError(c, http.StatusBadRequest, fmt.Sprintf("labels[%d]: unknown box2 value %q", i, item.Box2))
			return
		}
	}

	// One timestamp for the whole submission, so the batch can be grouped
	// later.
	now := time.Now().UTC()

	rows := make([]*models.PostLabel, len(req.Labels))
	for i, item := range req.Labels {
		rows[i] = &models.PostLabel{
			PostHash:  item.Hash,
			Box1:      item.Box1,
			Box2:      item.Box2,
			Username:  req.Username,
			Timestamp: now,
		}
	}

	if err := r.labels.CreateBatch(c.Request.Context(), rows); err != nil {
		r.logger.Error("Failed to persist label batch",
			zap.String("username", req.Username),
			zap.Int("count", len(rows)),
			zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to submit labels")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"timestamp": now.Format(time.RFC3339Nano),
	})
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// getStats handles GET /api/stats. The payload comes from the aggregate
// cache; a refresh failure degrades to the last good value, so this only
// fails when an aggregate has never been loaded at all.
func (r *Router) getStats(c *gin.Context) {
	snap, err := r.stats.Snapshot(c.Request.Context())
	if err != nil {
		r.logger.Error("Failed to build stats snapshot", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to load stats")
		return
	}
	c.JSON(http.StatusOK, snap)
}

// getParticipants handles GET /api/participants. The participant list is
// static content managed outside the database.
func (r *Router) getParticipants(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"participants": []string{}})
}

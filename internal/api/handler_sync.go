package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"supplyline-sync/internal/syncer"
)

// PostSync handles POST /api/sync?type=ALL|TOOLS|CHEMICALS|USERS.
func (h *Handler) PostSync(c *gin.Context) {
	t, err := syncer.ParseType(c.DefaultQuery("type", string(syncer.TypeAll)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be one of ALL, TOOLS, CHEMICALS, USERS"})
		return
	}

	name := syncer.OneShotWorkName
	if t == syncer.TypeAll {
		h.sync.SyncNow()
	} else {
		h.sync.SyncNowType(t)
		name = syncer.OneShotName(t)
	}
	c.JSON(http.StatusAccepted, gin.H{"name": name, "type": t})
}

// GetSyncStatus handles GET /api/sync/status.
func (h *Handler) GetSyncStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running": h.sync.IsRunning(),
		"works":   h.sync.Statuses(),
	})
}

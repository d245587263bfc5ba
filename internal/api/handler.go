package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"supplyline-sync/internal/remote"
	"supplyline-sync/internal/repository"
	"supplyline-sync/internal/syncer"
)

// SyncTrigger is the part of the sync scheduler the API drives.
type SyncTrigger interface {
	SyncNow()
	SyncNowType(t syncer.Type)
	Statuses() []syncer.Event
	IsRunning() bool
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	tools     *repository.ToolRepository
	chemicals *repository.ChemicalRepository
	users     *repository.UserRepository
	sync      SyncTrigger
	network   syncer.Connectivity
}

// NewHandler creates a new API handler.
func NewHandler(
	tools *repository.ToolRepository,
	chemicals *repository.ChemicalRepository,
	users *repository.UserRepository,
	sync SyncTrigger,
	network syncer.Connectivity,
) *Handler {
	return &Handler{
		tools:     tools,
		chemicals: chemicals,
		users:     users,
		sync:      sync,
		network:   network,
	}
}

// GetHealth handles GET /healthz.
func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "backend_reachable": h.network.IsConnected()})
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}

// abortWithError maps an error from the repositories onto an HTTP response.
func abortWithError(c *gin.Context, err error) {
	var verr *repository.ValidationError
	if errors.As(err, &verr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": verr.Message})
		return
	}
	if errors.Is(err, repository.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	var re *remote.Error
	if !errors.As(err, &re) {
		c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	status := http.StatusBadGateway
	switch re.Kind {
	case remote.KindConnectivity:
		status = http.StatusServiceUnavailable
	case remote.KindAuthentication:
		status = http.StatusUnauthorized
	case remote.KindAuthorization:
		status = http.StatusForbidden
	case remote.KindClient:
		status = http.StatusBadRequest
		if re.StatusCode == http.StatusNotFound || re.StatusCode == http.StatusConflict {
			status = re.StatusCode
		}
	}
	c.AbortWithStatusJSON(status, gin.H{"error": re.UserMessage()})
}

// writeOutcome reports a create or update. Writes kept only locally are
// accepted but flagged with the backend error.
func writeOutcome[T any](c *gin.Context, created bool, entity *T, outcome repository.Outcome) {
	switch outcome.Status {
	case repository.SyncedRemote:
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{"status": outcome.Status.String(), "data": entity})
	case repository.SavedLocalOnly:
		c.JSON(http.StatusAccepted, gin.H{
			"status":  outcome.Status.String(),
			"data":    entity,
			"warning": remote.Classify(outcome.Err).UserMessage(),
		})
	default:
		abortWithError(c, outcome.Err)
	}
}

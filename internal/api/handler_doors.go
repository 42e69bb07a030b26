package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oondels/emergency-gate-monitoring/internal/engine"
)

// GetDoorStatuses handles GET /api/doors/status: the latest persisted state
// per provisioned door. REST twin of the door_status websocket query.
func (h *Handler) GetDoorStatuses(c *gin.Context) {
	statuses, err := h.queries.Statuses(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve door statuses"})
		return
	}
	c.JSON(http.StatusOK, statuses)
}

// GetDoorOpenings handles GET /api/doors/:door_id/openings: the most recent
// open-events for one door, most recent first. REST twin of the
// last_openings websocket query.
func (h *Handler) GetDoorOpenings(c *gin.Context) {
	doorID := c.Param("door_id")

	openings, err := h.queries.OpeningsForDoor(c.Request.Context(), doorID)
	if errors.Is(err, engine.ErrDoorNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "door not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve openings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"door": doorID, "openings": openings})
}

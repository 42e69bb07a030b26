package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oondels/emergency-gate-monitoring/internal/engine"
)

type reportRequest struct {
	Open            bool     `json:"open"`
	Door            string   `json:"door" binding:"required"`
	OfflineMode     bool     `json:"offline_mode"`
	OfflineOpenings []string `json:"offline_openings"`
}

// PostReport handles POST /api/report: live status reports from the door
// controllers, or a batch of buffered open-events when the controller was
// offline.
func (h *Handler) PostReport(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.OfflineMode {
		if len(req.OfflineOpenings) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offline_openings must not be empty in offline mode"})
			return
		}
		if err := h.reconciler.Reconcile(c.Request.Context(), req.Door, req.OfflineOpenings); err != nil {
			log.Printf("offline reconciliation for door %s failed: %v", req.Door, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save offline openings"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "offline openings saved"})
		return
	}

	err := h.machine.Apply(c.Request.Context(), req.Door, req.Open)
	switch {
	case errors.Is(err, engine.ErrDoorNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "door not found"})
	case err != nil:
		log.Printf("report for door %s failed: %v", req.Door, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist door status"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "report received"})
	}
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"routinedash/pkg/outbox"
)

// JournalLister 由 outbox.Repository 实现
type JournalLister interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]*outbox.Entry, error)
}

type AdminHandler struct {
	replay  *outbox.ReplayService
	journal JournalLister
	logger  *zap.Logger
}

func NewAdminHandler(replay *outbox.ReplayService, journal JournalLister, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{replay: replay, journal: journal, logger: logger}
}

func limitParam(c *gin.Context, def int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}

// ListJournal GET /admin/journal?user_id=&limit=50
func (h *AdminHandler) ListJournal(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		badRequest(c, "missing user_id parameter")
		return
	}
	entries, err := h.journal.ListByUser(c.Request.Context(), userID, limitParam(c, 50))
	if err != nil {
		respondError(c, h.logger, "ListJournal: failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(entries), "items": nonNil(entries)})
}

// ReplayEntry POST /admin/journal/:id/replay
func (h *AdminHandler) ReplayEntry(c *gin.Context) {
	id := c.Param("id")
	if err := h.replay.ReplayEntry(c.Request.Context(), id); err != nil {
		if errors.Is(err, outbox.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "journal entry not found"})
			return
		}
		h.logger.Error("Failed to replay journal entry",
			zap.String("entry_id", id),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to replay entry",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "replayed", "entry_id": id})
}

// ReplayFailed POST /admin/journal/replay-failed?limit=100
func (h *AdminHandler) ReplayFailed(c *gin.Context) {
	limit := limitParam(c, 100)
	n, err := h.replay.ReplayFailed(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to replay failed entries", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to replay failed entries",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed", "success_count": n, "limit": limit})
}

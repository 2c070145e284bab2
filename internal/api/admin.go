package api

import (
	"net/http"

	"questtracker/internal/middleware"
	"questtracker/internal/service"
	"questtracker/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type adminRoutes struct {
	qs service.QuestServiceI
}

// NewAdminRoutes mounts moderation endpoints; guards must include an admin check.
func NewAdminRoutes(handler *gin.RouterGroup, qs service.QuestServiceI, guards ...gin.HandlerFunc) {
	r := &adminRoutes{qs: qs}
	h := handler.Group("/admin")
	h.Use(guards...)
	{
		h.DELETE("/quests/:id", r.DeleteQuest)
	}
}

func (r *adminRoutes) DeleteQuest(c *gin.Context) {
	questID, ok := parseQuestID(c)
	if !ok {
		return
	}

	if err := r.qs.AdminDeleteQuest(c.Request.Context(), questID); err != nil {
		writeLedgerError(c, "failed to delete quest", err)
		return
	}

	adminID, _ := middleware.AdminID(c)
	logger.Logger().Info("quest removed by admin",
		zap.String("quest_id", questID.String()), zap.Int64("admin_id", adminID))
	c.Status(http.StatusNoContent)
}

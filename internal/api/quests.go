package api

import (
	"net/http"
	"time"

	"questtracker/internal/model"
	"questtracker/internal/service"
	"questtracker/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type questRoutes struct {
	qs service.QuestServiceI
}

func NewQuestRoutes(handler *gin.RouterGroup, qs service.QuestServiceI, guards ...gin.HandlerFunc) {
	r := &questRoutes{qs: qs}
	h := handler.Group("/quests")
	h.Use(guards...)
	{
		h.POST("/", r.CreateQuest)
		h.PATCH("/:id", r.UpdateQuest)
		h.DELETE("/:id", r.DeleteQuest)
		h.POST("/:id/toggle", r.ToggleQuest)
	}
}

type CreateQuestRequest struct {
	Title         string     `json:"title" binding:"required"`
	Description   string     `json:"description"`
	RewardPoints  int        `json:"reward_points" binding:"required"`
	PenaltyPoints int        `json:"penalty_points"`
	ScheduledDay  string     `json:"scheduled_day"`
	Pinned        bool       `json:"pinned"`
	Category      string     `json:"category"`
	Color         string     `json:"color"`
	RemindAt      *time.Time `json:"remind_at"`
}

type UpdateQuestRequest struct {
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	RewardPoints  *int       `json:"reward_points"`
	PenaltyPoints *int       `json:"penalty_points"`
	Pinned        *bool      `json:"pinned"`
	Category      *string    `json:"category"`
	Color         *string    `json:"color"`
	RemindAt      *time.Time `json:"remind_at"`
}

type ToggleQuestResponse struct {
	Success     bool     `json:"success"`
	Completed   bool     `json:"completed"`
	PointsDelta int      `json:"points_delta"`
	NewBadges   []string `json:"new_badges"`
}

func parseQuestID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		logger.Logger().Info("failed to parse quest id", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quest id"})
		return uuid.Nil, false
	}
	return id, true
}

func (r *questRoutes) CreateQuest(c *gin.Context) {
	log := logger.Logger()

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreateQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	quest := &model.Quest{
		Title:         req.Title,
		Description:   req.Description,
		RewardPoints:  req.RewardPoints,
		PenaltyPoints: req.PenaltyPoints,
		Pinned:        req.Pinned,
		Category:      req.Category,
		Color:         req.Color,
		RemindAt:      req.RemindAt,
	}
	if req.ScheduledDay != "" {
		day, err := model.ParseDay(req.ScheduledDay)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "scheduled_day must be YYYY-MM-DD"})
			return
		}
		quest.ScheduledDay = day
	}

	created, err := r.qs.CreateQuest(c.Request.Context(), userID, quest)
	if err != nil {
		writeLedgerError(c, "failed to create quest", err)
		return
	}

	c.JSON(http.StatusCreated, newQuestResponse(created))
}

func (r *questRoutes) UpdateQuest(c *gin.Context) {
	log := logger.Logger()

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	questID, ok := parseQuestID(c)
	if !ok {
		return
	}

	var req UpdateQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	updated, err := r.qs.UpdateQuest(c.Request.Context(), questID, userID, model.QuestUpdate{
		Title:         req.Title,
		Description:   req.Description,
		RewardPoints:  req.RewardPoints,
		PenaltyPoints: req.PenaltyPoints,
		Category:      req.Category,
		Color:         req.Color,
		RemindAt:      req.RemindAt,
		Pinned:        req.Pinned,
	})
	if err != nil {
		writeLedgerError(c, "failed to update quest", err)
		return
	}

	c.JSON(http.StatusOK, newQuestResponse(updated))
}

func (r *questRoutes) DeleteQuest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	questID, ok := parseQuestID(c)
	if !ok {
		return
	}

	if err := r.qs.DeleteQuest(c.Request.Context(), questID, userID); err != nil {
		writeLedgerError(c, "failed to delete quest", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (r *questRoutes) ToggleQuest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	questID, ok := parseQuestID(c)
	if !ok {
		return
	}

	result, err := r.qs.ToggleCompletion(c.Request.Context(), questID, userID)
	if err != nil {
		writeLedgerError(c, "failed to toggle quest", err)
		return
	}

	c.JSON(http.StatusOK, ToggleQuestResponse{
		Success:     true,
		Completed:   result.Completed,
		PointsDelta: result.PointsDelta,
		NewBadges:   result.NewBadges,
	})
}

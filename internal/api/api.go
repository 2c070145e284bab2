package api

import (
	"errors"
	"net/http"
	"time"

	"questtracker/internal/model"
	"questtracker/internal/service"
	"questtracker/pkg/auth"
	"questtracker/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// currentUserID resolves the authenticated user or writes the error response itself.
func currentUserID(c *gin.Context) (int64, bool) {
	user, err := auth.UserFromContext(c)
	if err != nil {
		logger.Logger().Error("telegram user data not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return 0, false
	}
	return user.ID, true
}

// writeLedgerError maps service errors to responses. Expected rejections are logged at info,
// anything else at error.
func writeLedgerError(c *gin.Context, msg string, err error) {
	log := logger.Logger()

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrQuestNotFound), errors.Is(err, service.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrDayLocked):
		status = http.StatusLocked
	case errors.Is(err, service.ErrDailyLimitExceeded):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidQuest), errors.Is(err, service.ErrInvalidTarget):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrQuestCompleted), errors.Is(err, service.ErrUserAlreadyExists):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		log.Error(msg, zap.Error(err))
		c.JSON(status, gin.H{"error": msg})
		return
	}
	log.Info(msg, zap.Error(err))
	c.JSON(status, gin.H{"error": err.Error()})
}

type QuestResponse struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	RewardPoints  int        `json:"reward_points"`
	PenaltyPoints int        `json:"penalty_points"`
	ScheduledDay  string     `json:"scheduled_day"`
	Completed     bool       `json:"completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Pinned        bool       `json:"pinned"`
	TemplateKey   *string    `json:"template_key,omitempty"`
	Category      string     `json:"category"`
	Color         string     `json:"color"`
	RemindAt      *time.Time `json:"remind_at,omitempty"`
}

func newQuestResponse(q *model.Quest) QuestResponse {
	out := QuestResponse{
		ID:            q.ID.String(),
		Title:         q.Title,
		Description:   q.Description,
		RewardPoints:  q.RewardPoints,
		PenaltyPoints: q.PenaltyPoints,
		ScheduledDay:  model.FormatDay(q.ScheduledDay),
		Completed:     q.Completed,
		CompletedAt:   q.CompletedAt,
		Pinned:        q.Pinned,
		Category:      q.Category,
		Color:         q.Color,
		RemindAt:      q.RemindAt,
	}
	if q.TemplateKey != nil {
		key := q.TemplateKey.String()
		out.TemplateKey = &key
	}
	return out
}

func newQuestResponses(quests []*model.Quest) []QuestResponse {
	out := make([]QuestResponse, len(quests))
	for i, q := range quests {
		out[i] = newQuestResponse(q)
	}
	return out
}

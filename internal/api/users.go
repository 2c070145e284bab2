package api

import (
	"net/http"
	"time"

	"questtracker/internal/model"
	"questtracker/internal/service"
	"questtracker/pkg/auth"
	"questtracker/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultHistoryDays = 30

type userRoutes struct {
	us service.UserServiceI
}

func NewUserRoutes(handler *gin.RouterGroup, us service.UserServiceI, guards ...gin.HandlerFunc) {
	r := &userRoutes{us: us}
	h := handler.Group("/users")
	h.Use(guards...)
	{
		h.POST("/", r.RegisterUser)
		h.GET("/me", r.GetMe)
		h.PATCH("/me/target", r.UpdateDailyTarget)
		h.GET("/me/badges", r.GetBadges)
		h.GET("/me/history", r.GetHistory)
		h.GET("/leaderboard", r.GetLeaderboard)
	}
}

type RegisterUserRequest struct {
	Handle      string `json:"handle"`
	DailyTarget int    `json:"daily_target"`
}

type UserResponse struct {
	TelegramID       int64     `json:"telegram_id"`
	Handle           string    `json:"handle"`
	Username         string    `json:"username"`
	XP               int       `json:"xp"`
	DailyTarget      int       `json:"daily_target"`
	Streak           int       `json:"streak"`
	RegistrationDate time.Time `json:"registration_date"`
}

type UpdateTargetRequest struct {
	DailyTarget int `json:"daily_target" binding:"required"`
}

type BadgeResponse struct {
	BadgeID   string    `json:"badge_id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	AwardedAt time.Time `json:"awarded_at"`
}

type DayRecordResponse struct {
	Day           string  `json:"day"`
	PointsEarned  int     `json:"points_earned"`
	DayClosed     bool    `json:"day_closed"`
	TargetReached bool    `json:"target_reached"`
	RolloverDebt  int     `json:"rollover_debt"`
	Note          *string `json:"note,omitempty"`
}

func newUserResponse(u *model.User) UserResponse {
	return UserResponse{
		TelegramID:       u.TelegramID,
		Handle:           u.Handle,
		Username:         u.Username,
		XP:               u.XP,
		DailyTarget:      u.DailyTarget,
		Streak:           u.Streak,
		RegistrationDate: u.RegistrationDate,
	}
}

func (r *userRoutes) RegisterUser(c *gin.Context) {
	log := logger.Logger()

	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	tgUser, err := auth.UserFromContext(c)
	if err != nil {
		log.Error("telegram user data not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	u := &model.User{
		TelegramID:       tgUser.ID,
		Handle:           req.Handle,
		Username:         tgUser.Username,
		DailyTarget:      req.DailyTarget,
		RegistrationDate: tgUser.AuthDate,
	}

	if err = r.us.RegisterUser(c.Request.Context(), u); err != nil {
		writeLedgerError(c, "failed to register user", err)
		return
	}

	c.JSON(http.StatusCreated, newUserResponse(u))
}

func (r *userRoutes) GetMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := r.us.GetUser(c.Request.Context(), userID)
	if err != nil {
		writeLedgerError(c, "failed to get user", err)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}

func (r *userRoutes) UpdateDailyTarget(c *gin.Context) {
	log := logger.Logger()

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req UpdateTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := r.us.SetDailyTarget(c.Request.Context(), userID, req.DailyTarget); err != nil {
		writeLedgerError(c, "failed to update daily target", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"daily_target": req.DailyTarget})
}

func (r *userRoutes) GetBadges(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	awards, err := r.us.ListBadges(c.Request.Context(), userID)
	if err != nil {
		writeLedgerError(c, "failed to get badges", err)
		return
	}

	out := make([]BadgeResponse, len(awards))
	for i, a := range awards {
		out[i] = BadgeResponse{
			BadgeID:   a.BadgeID,
			Name:      a.Name,
			Icon:      a.Icon,
			AwardedAt: a.AwardedAt,
		}
	}

	c.JSON(http.StatusOK, out)
}

func (r *userRoutes) GetHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	to := model.DayOf(time.Now(), time.UTC)
	from := to.AddDate(0, 0, -defaultHistoryDays)
	if raw := c.Query("from"); raw != "" {
		day, err := model.ParseDay(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
			return
		}
		from = day
	}
	if raw := c.Query("to"); raw != "" {
		day, err := model.ParseDay(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be YYYY-MM-DD"})
			return
		}
		to = day
	}

	records, err := r.us.ListHistory(c.Request.Context(), userID, from, to)
	if err != nil {
		writeLedgerError(c, "failed to get history", err)
		return
	}

	out := make([]DayRecordResponse, len(records))
	for i, rec := range records {
		out[i] = DayRecordResponse{
			Day:           model.FormatDay(rec.Day),
			PointsEarned:  rec.PointsEarned,
			DayClosed:     rec.Settled,
			TargetReached: rec.TargetReached,
			RolloverDebt:  rec.RolloverDebt,
			Note:          rec.Note,
		}
	}

	c.JSON(http.StatusOK, out)
}

func (r *userRoutes) GetLeaderboard(c *gin.Context) {
	entries, err := r.us.GetLeaderboard(c.Request.Context())
	if err != nil {
		writeLedgerError(c, "failed to get leaderboard", err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

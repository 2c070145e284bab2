package api

import (
	"net/http"
	"time"

	"questtracker/internal/model"
	"questtracker/internal/service"

	"github.com/gin-gonic/gin"
)

type dashboardRoutes struct {
	ds service.DashboardServiceI
}

func NewDashboardRoutes(handler *gin.RouterGroup, ds service.DashboardServiceI, guards ...gin.HandlerFunc) {
	r := &dashboardRoutes{ds: ds}
	h := handler.Group("/dashboard")
	h.Use(guards...)
	{
		h.GET("", r.GetDashboard)
	}
}

type DashboardResponse struct {
	Day          string          `json:"day"`
	Quests       []QuestResponse `json:"quests"`
	PointsEarned int             `json:"points_earned"`
	DayClosed    bool            `json:"day_closed"`
	RolloverDebt int             `json:"rollover_debt"`
	Note         *string         `json:"note,omitempty"`
	XP           int             `json:"xp"`
	Streak       int             `json:"streak"`
	DailyTarget  int             `json:"daily_target"`
	Templates    []QuestResponse `json:"pinned_templates"`
}

func (r *dashboardRoutes) GetDashboard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var day *time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := model.ParseDay(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		day = &parsed
	}

	dash, err := r.ds.GetDashboard(c.Request.Context(), userID, day)
	if err != nil {
		writeLedgerError(c, "failed to get dashboard", err)
		return
	}

	c.JSON(http.StatusOK, DashboardResponse{
		Day:          model.FormatDay(dash.Day),
		Quests:       newQuestResponses(dash.Quests),
		PointsEarned: dash.PointsEarned,
		DayClosed:    dash.Settled,
		RolloverDebt: dash.RolloverDebt,
		Note:         dash.Note,
		XP:           dash.XP,
		Streak:       dash.Streak,
		DailyTarget:  dash.DailyTarget,
		Templates:    newQuestResponses(dash.Templates),
	})
}

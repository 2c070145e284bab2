package api

import (
	"errors"
	"io"
	"net/http"

	"questtracker/internal/model"
	"questtracker/internal/service"
	"questtracker/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type dayRoutes struct {
	ss service.SettlementServiceI
}

func NewDayRoutes(handler *gin.RouterGroup, ss service.SettlementServiceI, guards ...gin.HandlerFunc) {
	r := &dayRoutes{ss: ss}
	h := handler.Group("/day")
	h.Use(guards...)
	{
		h.POST("/close", r.CloseDay)
	}
}

type CloseDayRequest struct {
	Note string `json:"note"`
}

type CloseDayResponse struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	Day           string   `json:"day"`
	Earned        int      `json:"earned"`
	Penalty       int      `json:"penalty"`
	TargetReached bool     `json:"target_reached"`
	RolloverDebt  int      `json:"rollover_debt"`
	Streak        int      `json:"streak"`
	NewBadges     []string `json:"new_badges"`
}

func (r *dayRoutes) CloseDay(c *gin.Context) {
	log := logger.Logger()

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CloseDayRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := r.ss.CloseDay(c.Request.Context(), userID, req.Note)
	if err != nil {
		writeLedgerError(c, "failed to close day", err)
		return
	}

	out := CloseDayResponse{
		Success:       result.Success,
		Message:       result.Message,
		Day:           model.FormatDay(result.Day),
		Earned:        result.Earned,
		Penalty:       result.Penalty,
		TargetReached: result.TargetReached,
		RolloverDebt:  result.RolloverDebt,
		Streak:        result.Streak,
		NewBadges:     result.NewBadges,
	}
	if !result.Success {
		log.Info("day already closed", zap.Int64("telegram_id", userID))
		c.JSON(http.StatusConflict, out)
		return
	}

	c.JSON(http.StatusOK, out)
}

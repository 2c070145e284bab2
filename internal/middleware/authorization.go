package middleware

import (
	"errors"
	"net/http"

	"questtracker/internal/service"
	"questtracker/pkg/auth"
	"questtracker/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const adminIDKey = "admin_id"

type Authorization struct {
	userService service.UserServiceI
}

func NewAuthorization(userService service.UserServiceI) *Authorization {
	return &Authorization{
		userService: userService,
	}
}

// AdminOnly lets the request through only for registered users flagged as admin.
// The admin's telegram id is then available through AdminID.
func (a *Authorization) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		identity, err := auth.UserFromContext(c)
		if err != nil {
			log.Info("admin endpoint called without identity", zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		user, err := a.userService.GetUser(c.Request.Context(), identity.ID)
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			log.Info("admin endpoint called by unregistered user", zap.Int64("telegram_id", identity.ID))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		case err != nil:
			log.Error("failed to resolve admin rights", zap.Int64("telegram_id", identity.ID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve admin rights"})
			return
		}

		if !user.IsAdmin {
			log.Info("admin endpoint refused", zap.Int64("telegram_id", identity.ID))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}

		c.Set(adminIDKey, user.TelegramID)
		c.Next()
	}
}

// AdminID returns the id stored by AdminOnly.
func AdminID(c *gin.Context) (int64, bool) {
	id, ok := c.Get(adminIDKey)
	if !ok {
		return 0, false
	}
	adminID, ok := id.(int64)
	return adminID, ok
}

package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"questtracker/pkg/logger"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"
	"go.uber.org/zap"
)

const (
	expTime    = 24 * time.Hour
	scheme     = "Telegram "
	contextKey = "telegram_user"
)

var ErrNoIdentity = errors.New("telegram identity missing from request context")

type TelegramAuth struct {
	botToken  string
	debugMode bool
}

func NewTelegramAuth(botToken string, debugMode bool) *TelegramAuth {
	return &TelegramAuth{
		botToken:  botToken,
		debugMode: debugMode,
	}
}

type TelegramUserData struct {
	ID       int64
	Username string
	AuthDate time.Time
}

// TelegramAuthMiddleware validates the mini-app init data sent as "Authorization: Telegram <init data>"
// and stores the resolved identity on the gin context. Signature checks are skipped in debug mode.
func (t *TelegramAuth) TelegramAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Info("missing authorization header")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			return
		}

		if !strings.HasPrefix(authHeader, scheme) {
			log.Info("invalid authorization header format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}

		raw := strings.TrimPrefix(authHeader, scheme)
		if !t.debugMode {
			if err := initdata.Validate(raw, t.botToken, expTime); err != nil {
				log.Info("invalid telegram init data", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid telegram auth data"})
				return
			}
		}

		data, err := initdata.Parse(raw)
		if err != nil || data.User.ID == 0 {
			log.Info("failed to parse telegram init data", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid telegram data"})
			return
		}

		c.Set(contextKey, &TelegramUserData{
			ID:       data.User.ID,
			Username: data.User.Username,
			AuthDate: data.AuthDate(),
		})
		c.Next()
	}
}

// SetUser stores an already resolved identity; used by tests and trusted internal callers.
func SetUser(c *gin.Context, user *TelegramUserData) {
	c.Set(contextKey, user)
}

func UserFromContext(c *gin.Context) (*TelegramUserData, error) {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil, ErrNoIdentity
	}
	user, ok := v.(*TelegramUserData)
	if !ok || user == nil {
		return nil, ErrNoIdentity
	}
	return user, nil
}

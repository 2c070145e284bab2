package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"questtracker/internal/model"
	"questtracker/internal/service"
	"questtracker/internal/service/mocks"
	"questtracker/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestAuthorization_AdminOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		userID         int64
		mockSetup      func(us *mocks.MockUserService)
		expectedStatus int
	}{
		{
			name:   "Admin passes",
			userID: 1,
			mockSetup: func(us *mocks.MockUserService) {
				us.On("GetUser", mock.Anything, int64(1)).Return(&model.User{TelegramID: 1, IsAdmin: true}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "Regular user is refused",
			userID: 2,
			mockSetup: func(us *mocks.MockUserService) {
				us.On("GetUser", mock.Anything, int64(2)).Return(&model.User{TelegramID: 2}, nil)
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:   "Unknown user",
			userID: 3,
			mockSetup: func(us *mocks.MockUserService) {
				us.On("GetUser", mock.Anything, int64(3)).Return(nil, service.ErrUserNotFound)
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:   "Storage failure",
			userID: 4,
			mockSetup: func(us *mocks.MockUserService) {
				us.On("GetUser", mock.Anything, int64(4)).Return(nil, errors.New("connection refused"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "No identity",
			mockSetup:      func(us *mocks.MockUserService) {},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			us := &mocks.MockUserService{}
			tt.mockSetup(us)

			router := gin.New()
			router.Use(func(c *gin.Context) {
				if tt.userID != 0 {
					auth.SetUser(c, &auth.TelegramUserData{ID: tt.userID})
				}
				c.Next()
			}, NewAuthorization(us).AdminOnly())
			router.GET("/admin", func(c *gin.Context) {
				adminID, ok := AdminID(c)
				assert.True(t, ok)
				assert.Equal(t, tt.userID, adminID)
				c.Status(http.StatusOK)
			})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
			assert.Equal(t, tt.expectedStatus, rec.Code)
			us.AssertExpectations(t)
		})
	}
}

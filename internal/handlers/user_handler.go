package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chamapool/internal/services"
)

// UserHandler handles user profile requests.
type UserHandler struct {
	userService services.UserServicer
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService services.UserServicer) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetProfile returns the caller's profile and activity stats
// @Summary     Get my profile
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.UserStats
// @Router      /users/me [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	stats, err := h.userService.GetUserStats(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":  user,
		"stats": stats,
	})
}

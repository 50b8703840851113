package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/opentill/terminal/internal/application/service"
	"github.com/opentill/terminal/internal/presentation/http/dto/request"
	"github.com/opentill/terminal/internal/presentation/http/dto/response"
	"github.com/opentill/terminal/pkg/apperror"
	"github.com/opentill/terminal/pkg/utils"
)

// AuthHandler handles operator login on the loopback API
type AuthHandler struct {
	sessions *service.SessionService
	tokens   *utils.TokenManager
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sessions *service.SessionService, tokens *utils.TokenManager) *AuthHandler {
	return &AuthHandler{sessions: sessions, tokens: tokens}
}

// Login authenticates an operator and issues a local token for the register
// UI. Works online (against the server) and offline (against the cached PIN
// hashes); the response is identical either way.
func (h *AuthHandler) Login(c *gin.Context) {
	var req request.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid login payload")
		return
	}

	user, err := h.sessions.Login(c.Request.Context(), req.Username, req.Pin)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Username)
	if err != nil {
		response.Error(c, apperror.NewServerError("token", "failed to issue local token"))
		return
	}

	response.OK(c, "Logged in", gin.H{
		"token": token,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"isAdmin":  user.IsAdmin,
		},
	})
}

// Logout clears the operator session.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.sessions.Logout()
	response.OK(c, "Logged out", nil)
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetUsers(c *gin.Context) {
	users, err := h.users.ActiveUsers(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

type loginRequest struct {
	EmployeeNumber string `json:"employee_number"`
	Password       string `json:"password"`
}

// PostLogin handles POST /api/auth/login. Credential checks happen in the
// repository so that their messages reach the client unchanged.
func (h *Handler) PostLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	result, err := h.users.Login(c.Request.Context(), req.EmployeeNumber, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":    result.User,
		"offline": result.Offline,
		"message": result.Message,
	})
}

// PostLogout handles POST /api/auth/logout.
func (h *Handler) PostLogout(c *gin.Context) {
	h.users.Logout(c.Request.Context())
	c.Status(http.StatusNoContent)
}

// GetStats handles GET /api/stats.
func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	tools, err := h.tools.Stats(ctx)
	if err != nil {
		abortWithError(c, err)
		return
	}
	chemicals, err := h.chemicals.Stats(ctx)
	if err != nil {
		abortWithError(c, err)
		return
	}
	users, err := h.users.Stats(ctx)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tools": tools, "chemicals": chemicals, "users": users})
}

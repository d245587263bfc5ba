package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"supplyline-sync/internal/model"
	"supplyline-sync/internal/remote"
)

// GetTools handles GET /api/tools.
func (h *Handler) GetTools(c *gin.Context) {
	tools, err := h.tools.ToolsWithCheckoutInfo(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, tools)
}

// GetTool handles GET /api/tools/:id.
func (h *Handler) GetTool(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	tool, err := h.tools.GetToolWithCheckoutInfo(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool)
}

// GetCalibrationDue handles GET /api/tools/calibration/due.
func (h *Handler) GetCalibrationDue(c *gin.Context) {
	tools, err := h.tools.CalibrationDueSoon(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, tools)
}

// PostTool handles POST /api/tools.
func (h *Handler) PostTool(c *gin.Context) {
	var tool model.Tool
	if err := c.ShouldBindJSON(&tool); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if tool.ToolNumber == "" || tool.SerialNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tool_number and serial_number are required"})
		return
	}
	if tool.Status == "" {
		tool.Status = model.ToolAvailable
	}
	saved, outcome := h.tools.CreateTool(c.Request.Context(), &tool)
	writeOutcome(c, true, saved, outcome)
}

// GetActiveCheckouts handles GET /api/checkouts/active.
func (h *Handler) GetActiveCheckouts(c *gin.Context) {
	checkouts, err := h.tools.ActiveCheckouts(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, checkouts)
}

type checkoutRequest struct {
	ToolID             int64     `json:"tool_id" binding:"required"`
	UserID             int64     `json:"user_id" binding:"required"`
	ExpectedReturnDate time.Time `json:"expected_return_date" binding:"required"`
	Notes              *string   `json:"notes"`
}

// PostCheckout handles POST /api/checkouts.
func (h *Handler) PostCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	checkout, err := h.tools.CheckoutTool(c.Request.Context(), remote.CheckoutRequest{
		ToolID:             req.ToolID,
		UserID:             req.UserID,
		ExpectedReturnDate: req.ExpectedReturnDate,
		Notes:              req.Notes,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, checkout)
}

type returnRequest struct {
	Condition string  `json:"condition" binding:"required"`
	Notes     *string `json:"notes"`
}

// PostReturn handles POST /api/checkouts/:id/return.
func (h *Handler) PostReturn(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req returnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	checkout, err := h.tools.ReturnTool(c.Request.Context(), remote.ReturnRequest{
		CheckoutID: id,
		Condition:  req.Condition,
		Notes:      req.Notes,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, checkout)
}

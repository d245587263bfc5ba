package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"supplyline-sync/internal/remote"
)

func (h *Handler) GetChemicals(c *gin.Context) {
	chemicals, err := h.chemicals.ActiveChemicals(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, chemicals)
}

func (h *Handler) GetLowStockChemicals(c *gin.Context) {
	chemicals, err := h.chemicals.LowStock(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, chemicals)
}

func (h *Handler) GetExpiringChemicals(c *gin.Context) {
	chemicals, err := h.chemicals.Expiring(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, chemicals)
}

type issueRequest struct {
	ChemicalID int64   `json:"chemical_id" binding:"required"`
	Quantity   float64 `json:"quantity" binding:"required,gt=0"`
	Location   string  `json:"location" binding:"required"`
	Purpose    *string `json:"purpose"`
	Notes      *string `json:"notes"`
}

// PostIssuance handles POST /api/issuances.
func (h *Handler) PostIssuance(c *gin.Context) {
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	issuance, err := h.chemicals.IssueChemical(c.Request.Context(), remote.IssueRequest(req))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, issuance)
}

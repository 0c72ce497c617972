package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tradorr/api/internal/catalog"
)

type planResponse struct {
	catalog.Plan
	TotalTokens int64 `json:"totalTokens"`
}

func (h HandlerSet) ListPlans(c *gin.Context) {
	plans := catalog.Plans()
	items := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		items = append(items, planResponse{Plan: p, TotalTokens: p.TotalTokens()})
	}

	c.JSON(http.StatusOK, gin.H{
		"plans": items,
	})
}

func (h HandlerSet) TokenCosts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"costs": catalog.Costs(),
	})
}

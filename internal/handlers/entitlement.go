package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tradorr/api/internal/catalog"
	"tradorr/api/internal/entitlement"
	"tradorr/api/internal/middleware"
	"tradorr/api/internal/models"
)

type entitlementResponse struct {
	Active       bool       `json:"active"`
	PlanID       *string    `json:"planId,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	TokenBalance int64      `json:"tokenBalance"`
}

func toEntitlementResponse(ent models.Entitlement) entitlementResponse {
	return entitlementResponse{
		Active:       ent.Active,
		PlanID:       ent.PlanID,
		ExpiresAt:    ent.ExpiresAt,
		TokenBalance: ent.TokenBalance,
	}
}

func (h HandlerSet) GetEntitlement(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ent, err := h.entitlements.Snapshot(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entitlement": toEntitlementResponse(ent),
	})
}

type analyzeRequest struct {
	Category string `json:"category" binding:"required"`
}

// Analyze charges tokens for one chart analysis. The analysis itself runs
// in the external analyzer app; this endpoint only settles the cost.
func (h HandlerSet) Analyze(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cost, ok := catalog.TokenCost(catalog.AnalysisCategory(req.Category))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_category"})
		return
	}

	ent, err := h.entitlements.Consume(c.Request.Context(), user.ID, cost)
	if err != nil {
		if errors.Is(err, entitlement.ErrInsufficientBalance) {
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "insufficient_tokens"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"category":     req.Category,
		"cost":         cost,
		"tokenBalance": ent.TokenBalance,
	})
}

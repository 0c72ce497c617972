package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tradorr/api/internal/models"
	"tradorr/api/internal/repository"
)

func pagination(c *gin.Context) (limit int, offset int) {
	limit = 50
	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 1 {
			offset = (v - 1) * limit
		}
	}
	return limit, offset
}

func (h HandlerSet) AdminListUsers(c *gin.Context) {
	limit, offset := pagination(c)

	users, err := h.users.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]map[string]interface{}, 0, len(users))
	for _, user := range users {
		items = append(items, map[string]interface{}{
			"id":          user.ID,
			"email":       user.Email,
			"displayName": user.DisplayName,
			"role":        user.Role,
			"status":      user.Status,
			"createdAt":   user.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
	})
}

func (h HandlerSet) AdminListCheckouts(c *gin.Context) {
	limit, offset := pagination(c)

	sessions, err := h.checkoutRepo.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]map[string]interface{}, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, map[string]interface{}{
			"id":          s.ID,
			"userId":      s.UserID,
			"planId":      s.PlanID,
			"method":      s.Method,
			"status":      s.Status,
			"amountMinor": s.AmountMinor,
			"currency":    s.Currency,
			"provider":    s.ProviderName,
			"createdAt":   s.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
	})
}

type adminAdjustTokensRequest struct {
	Delta int64 `json:"delta" binding:"required"`
}

func (h HandlerSet) AdminAdjustTokens(c *gin.Context) {
	userID := c.Param("id")

	var req adminAdjustTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.users.GetByID(c.Request.Context(), userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ent, err := h.entitlements.AdjustTokens(c.Request.Context(), userID, req.Delta)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entitlement": toEntitlementResponse(ent),
	})
}

type adminUpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active suspended"`
}

func (h HandlerSet) AdminUpdateUserStatus(c *gin.Context) {
	userID := c.Param("id")

	var req adminUpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.users.UpdateStatus(c.Request.Context(), userID, models.UserStatus(req.Status))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

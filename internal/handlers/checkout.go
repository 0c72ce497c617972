package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tradorr/api/internal/checkout"
	"tradorr/api/internal/middleware"
	"tradorr/api/internal/models"
	"tradorr/api/internal/payment"
)

type startCheckoutRequest struct {
	PlanID string `json:"planId" binding:"required"`
}

func (h HandlerSet) StartCheckout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req startCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.checkouts.Start(c.Request.Context(), user.ID, req.PlanID)
	if err != nil {
		c.JSON(checkoutErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"checkout": toCheckoutResponse(session),
	})
}

func (h HandlerSet) GetCheckout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	session, err := h.checkouts.Get(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		c.JSON(checkoutErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"checkout": toCheckoutResponse(session),
	})
}

type selectMethodRequest struct {
	Method string `json:"method" binding:"required"`
	Trial  bool   `json:"trial"`
}

func (h HandlerSet) SelectMethod(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req selectMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, handoff, err := h.checkouts.SelectMethod(
		c.Request.Context(),
		user.ID,
		c.Param("id"),
		models.PaymentMethod(req.Method),
		req.Trial,
	)
	if err != nil {
		c.JSON(checkoutErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"checkout": toCheckoutResponse(session),
		"handoff":  handoff,
	})
}

func (h HandlerSet) CancelCheckout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	session, err := h.checkouts.CancelByUser(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		c.JSON(checkoutErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"checkout": toCheckoutResponse(session),
	})
}

// PaymentWebhook receives a provider's signed outcome notification. A
// redis nonce claim rejects replayed deliveries before the signature is
// even checked.
func (h HandlerSet) PaymentWebhook(c *gin.Context) {
	providerName := c.Param("provider")

	var cb payment.Callback
	if err := c.ShouldBindJSON(&cb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if cb.Nonce == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing nonce"})
		return
	}

	nonceKey := fmt.Sprintf("webhook:nonce:%s:%s", providerName, cb.Nonce)
	claimed, err := h.cache.SetNX(c.Request.Context(), nonceKey, "1", 10*time.Minute).Result()
	if err != nil {
		h.log.Error().Err(err).Msg("webhook nonce claim failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !claimed {
		c.JSON(http.StatusConflict, gin.H{"error": "replayed webhook"})
		return
	}

	if err := h.checkouts.HandleCallback(c.Request.Context(), providerName, cb); err != nil {
		c.JSON(checkoutErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type checkoutResponse struct {
	ID            string               `json:"id"`
	PlanID        string               `json:"planId"`
	Method        models.PaymentMethod `json:"method,omitempty"`
	Trial         bool                 `json:"trial"`
	AmountMinor   int64                `json:"amountMinor"`
	Currency      string               `json:"currency"`
	Status        string               `json:"status"`
	FailureReason string               `json:"failureReason,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

func toCheckoutResponse(session models.CheckoutSession) checkoutResponse {
	return checkoutResponse{
		ID:            session.ID,
		PlanID:        session.PlanID,
		Method:        session.Method,
		Trial:         session.Trial,
		AmountMinor:   session.AmountMinor,
		Currency:      session.Currency,
		Status:        string(session.Status),
		FailureReason: session.FailureReason,
		CreatedAt:     session.CreatedAt,
		UpdatedAt:     session.UpdatedAt,
	}
}

func checkoutErrorStatus(err error) int {
	switch {
	case errors.Is(err, checkout.ErrUnknownPlan), errors.Is(err, checkout.ErrInvalidMethod):
		return http.StatusBadRequest
	case errors.Is(err, payment.ErrInvalidSignature), errors.Is(err, payment.ErrCallbackExpired):
		return http.StatusUnauthorized
	case errors.Is(err, checkout.ErrNotFound), errors.Is(err, payment.ErrUnknownProvider):
		return http.StatusNotFound
	case errors.Is(err, checkout.ErrTerminal):
		return http.StatusConflict
	case errors.Is(err, payment.ErrProviderFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

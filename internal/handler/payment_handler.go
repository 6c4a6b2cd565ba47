package handler

import (
	"net/http"

	"counsel/internal/domain"
	"counsel/internal/middleware"
	"counsel/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type PaymentHandler struct {
	paymentSvc *service.PaymentService
}

func NewPaymentHandler(paymentSvc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc}
}

// CreateIntent opens an authorization with the processor for the caller.
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req struct {
		Amount         float64 `json:"amount" binding:"required,gt=0"`
		Currency       string  `json:"currency"`
		ConsultationID string  `json:"consultationId"`
		Description    string  `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	res, err := h.paymentSvc.CreateIntent(c.Request.Context(), userID, service.CreateIntentInput{
		Amount:         decimal.NewFromFloat(req.Amount),
		Currency:       req.Currency,
		ConsultationID: req.ConsultationID,
		Description:    req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"clientSecret":    res.ClientSecret,
		"paymentIntentId": res.PaymentIntentID,
	})
}

// Confirm lets the client assert completion synchronously, independent of
// webhook arrival order.
func (h *PaymentHandler) Confirm(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req struct {
		PaymentIntentID string `json:"paymentIntentId" binding:"required"`
		ConsultationID  string `json:"consultationId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	amount, err := h.paymentSvc.ConfirmPayment(c.Request.Context(), userID, req.PaymentIntentID, req.ConsultationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         "Payment confirmed successfully",
		"paymentIntentId": req.PaymentIntentID,
		"amount":          amount.InexactFloat64(),
	})
}

func (h *PaymentHandler) History(c *gin.Context) {
	userID := middleware.GetUserID(c)
	payments, err := h.paymentSvc.History(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(payments))
	for _, p := range payments {
		out = append(out, gin.H{
			"id":                  p.ID,
			"amount":              p.Amount.InexactFloat64(),
			"status":              p.Status,
			"consultationSummary": p.ConsultationSummary,
			"createdAt":           p.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "payments": out})
}

func (h *PaymentHandler) Refund(c *gin.Context) {
	userID := middleware.GetUserID(c)
	paymentID := c.Param("paymentId")
	res, err := h.paymentSvc.Refund(c.Request.Context(), userID, paymentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Payment refunded successfully",
		"refundId": res.RefundID,
		"amount":   res.Amount.InexactFloat64(),
	})
}

// respondError maps domain errors to status codes and keeps internal detail out
// of the response body.
func respondError(c *gin.Context, err error) {
	c.JSON(domain.HTTPStatus(err), gin.H{"success": false, "error": domain.PublicMessage(err)})
}

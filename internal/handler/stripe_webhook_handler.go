package handler

import (
	"io"
	"log"
	"net/http"

	"counsel/internal/service"
	"counsel/pkg/processor"

	"github.com/gin-gonic/gin"
)

type StripeWebhookHandler struct {
	proc       processor.Processor
	webhookSvc *service.WebhookService
}

func NewStripeWebhookHandler(proc processor.Processor, webhookSvc *service.WebhookService) *StripeWebhookHandler {
	return &StripeWebhookHandler{proc: proc, webhookSvc: webhookSvc}
}

// Handle receives processor webhooks. The signature is computed over the exact
// request bytes, so the body is read raw and never bound through JSON first.
// Verification failures are the only 400s; once an event is authenticated the
// response is 200 no matter what processing does, otherwise the processor's
// retry loop would amplify a transient internal fault.
func (h *StripeWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	sig := c.GetHeader("Stripe-Signature")
	if sig == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing signature"})
		return
	}

	event, err := h.proc.VerifyWebhook(body, sig)
	if err != nil {
		// Underlying detail is for operators only.
		log.Printf("[Webhook] signature verification failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	h.webhookSvc.HandleEvent(c.Request.Context(), event)
	c.JSON(http.StatusOK, gin.H{"received": true})
}

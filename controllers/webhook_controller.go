package controllers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"

	"marketplace-service/services"
)

const eventCheckoutCompleted = "checkout.session.completed"

// WebhookController receives payment processor events.
type WebhookController struct {
	payments    services.PaymentGateway
	fulfillment services.FulfillmentService
	maxBodySize int64
	logger      *zap.Logger
}

func NewWebhookController(payments services.PaymentGateway, fulfillment services.FulfillmentService, maxBodySize int64, logger *zap.Logger) *WebhookController {
	if maxBodySize <= 0 {
		maxBodySize = 65536
	}
	return &WebhookController{payments: payments, fulfillment: fulfillment, maxBodySize: maxBodySize, logger: logger}
}

// StripeWebhook handles POST /webhook. A non-2xx answer makes Stripe
// redeliver the event, so only failures worth retrying return 500.
func (wc *WebhookController) StripeWebhook(ctx *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, wc.maxBodySize))
	if err != nil {
		ctx.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
		return
	}

	event, err := wc.payments.ParseWebhook(payload, ctx.GetHeader("Stripe-Signature"))
	if err != nil {
		wc.logger.Warn("Stripe webhook signature verification failed", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook signature"})
		return
	}

	wc.logger.Info("Processing Stripe webhook",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
	)

	if string(event.Type) != eventCheckoutCompleted {
		ctx.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		wc.logger.Error("Failed to unmarshal checkout session", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid checkout session payload"})
		return
	}

	result, svcErr := wc.fulfillment.ConfirmSession(ctx.Request.Context(), services.CompletedSession{
		ID:            sess.ID,
		PaymentStatus: string(sess.PaymentStatus),
		Metadata:      sess.Metadata,
	})
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"received":          true,
		"already_processed": result.AlreadyProcessed,
	})
}

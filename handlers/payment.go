package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"tourbook/models"
	"tourbook/utils"

	"go.uber.org/zap"
)

// InitiatePayment handles POST /api/bookings/:id/payment.
func (h *BookingHandler) InitiatePayment(c *gin.Context) {
	var input struct {
		Provider models.PaymentProvider `json:"provider"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid input", err.Error())
		return
	}

	target, err := h.service.InitiatePayment(c.Request.Context(), c.Param("id"), input.Provider)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, target)
}

// GatewayIPN handles the asynchronous provider notification:
//
//	GET  /api/payment/ipn/vnpay  (signed query parameters)
//	POST /api/payment/ipn/momo   (signed JSON body)
//
// The response is always a 200-level ack so providers do not retry-storm;
// verification failures are logged internally and reported in the body.
func (h *BookingHandler) GatewayIPN(c *gin.Context) {
	provider := models.PaymentProvider(c.Param("provider"))

	raw, ok := h.rawCallbackPayload(c, provider)
	if !ok {
		return
	}

	result, err := h.service.HandleGatewayCallback(c.Request.Context(), provider, raw)
	if err != nil {
		// Acked with an error marker; the anomaly is already logged.
		c.JSON(http.StatusOK, gin.H{"ack": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ack": true, "success": result.Success})
}

// PaymentReturn handles the customer-facing return redirect:
//
//	GET /api/payment/return/:provider
//
// It feeds the same verified-callback path as the IPN, then reports the
// booking-facing outcome so the UI can render a result page.
func (h *BookingHandler) PaymentReturn(c *gin.Context) {
	provider := models.PaymentProvider(c.Param("provider"))

	result, err := h.service.HandleGatewayCallback(c.Request.Context(), provider, []byte(c.Request.URL.RawQuery))
	if err != nil {
		writeError(c, err)
		return
	}

	status := "failed"
	if result.Success {
		status = "paid"
	}
	c.JSON(http.StatusOK, gin.H{
		"provider": result.Provider,
		"status":   status,
	})
}

// rawCallbackPayload extracts the provider's raw payload: query string for
// redirect-style gateways, request body for JSON IPNs.
func (h *BookingHandler) rawCallbackPayload(c *gin.Context, provider models.PaymentProvider) ([]byte, bool) {
	if c.Request.Method == http.MethodGet {
		return []byte(c.Request.URL.RawQuery), true
	}

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Warn("failed to read callback body",
			zap.String("provider", string(provider)), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"ack": false, "message": "unreadable payload"})
		return nil, false
	}
	return raw, true
}

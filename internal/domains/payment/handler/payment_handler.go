package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"epay-gateway/internal/domains/payment/gateway/epay"
	"epay-gateway/internal/domains/payment/model"
	"epay-gateway/internal/domains/payment/service"
	"epay-gateway/internal/shared/middleware"
	"epay-gateway/internal/shared/response"
)

// Plain-text acknowledgements the epay gateway understands.
const (
	notifyAckSuccess = "success"
	notifyAckFail    = "fail"
)

type PaymentHandler struct {
	paymentService service.PaymentService
}

// NewPaymentHandler creates new payment handler
func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// =====================================================
// CHECKOUT ENDPOINTS
// =====================================================

// Method describes the gateway for the checkout page
// GET /api/v1/payments/epay/method
func (h *PaymentHandler) Method(c *gin.Context) {
	resp, err := h.paymentService.Method(c.Request.Context())
	if err != nil {
		statusCode, errCode := mapPaymentError(err)
		response.Error(c, statusCode, errCode, err.Error())
		return
	}

	response.Success(c, http.StatusOK, "OK", resp)
}

// Pay builds the signed gateway redirect for an order
// POST /api/v1/payments/epay/pay
func (h *PaymentHandler) Pay(c *gin.Context) {
	// Step 1: Bind request body
	var req model.PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	// Step 2: Call service
	resp, err := h.paymentService.Pay(c.Request.Context(), req)
	if err != nil {
		statusCode, errCode := mapPaymentError(err)
		response.Error(c, statusCode, errCode, err.Error())
		return
	}

	response.Success(c, http.StatusOK, "Payment redirect created", resp)
}

// =====================================================
// GATEWAY CALLBACK
// =====================================================

// Notify handles the asynchronous gateway notification
// GET/POST /api/v1/payments/epay/notify
func (h *PaymentHandler) Notify(c *gin.Context) {
	// Step 1: Collect parameters from query string and form body
	if err := c.Request.ParseForm(); err != nil {
		response.Text(c, http.StatusBadRequest, notifyAckFail)
		return
	}
	params := epay.ParamsFromValues(c.Request.Form)

	// Step 2: Verify and queue an active check
	if _, err := h.paymentService.HandleCallback(c.Request.Context(), params); err != nil {
		response.Text(c, http.StatusBadRequest, notifyAckFail)
		return
	}

	// Step 3: Acknowledge so the gateway stops retrying
	response.Text(c, http.StatusOK, notifyAckSuccess)
}

// =====================================================
// ADMIN ENDPOINTS
// =====================================================

// AdminReconcile queues a reconciliation cycle
// POST /api/v1/admin/payments/epay/reconcile
func (h *PaymentHandler) AdminReconcile(c *gin.Context) {
	adminID := c.GetString(middleware.ContextUserID)

	resp, err := h.paymentService.TriggerReconcile(c.Request.Context(), adminID)
	if err != nil {
		statusCode, errCode := mapPaymentError(err)
		response.Error(c, statusCode, errCode, err.Error())
		return
	}

	response.Success(c, http.StatusAccepted, "Reconciliation queued", resp)
}

// AdminCheckOrder actively queries one order
// GET /api/v1/admin/payments/epay/orders/:trade_no
func (h *PaymentHandler) AdminCheckOrder(c *gin.Context) {
	tradeNo := c.Param("trade_no")
	if tradeNo == "" {
		response.BadRequest(c, "trade_no is required")
		return
	}

	resp, err := h.paymentService.CheckOrder(c.Request.Context(), tradeNo)
	if err != nil {
		statusCode, errCode := mapPaymentError(err)
		response.Error(c, statusCode, errCode, err.Error())
		return
	}

	response.Success(c, http.StatusOK, "OK", resp)
}

// AdminRefreshConfig drops cached gateway settings
// POST /api/v1/admin/payments/epay/config/refresh
func (h *PaymentHandler) AdminRefreshConfig(c *gin.Context) {
	adminID := c.GetString(middleware.ContextUserID)

	resp, err := h.paymentService.RefreshConfig(c.Request.Context(), adminID)
	if err != nil {
		statusCode, errCode := mapPaymentError(err)
		response.Error(c, statusCode, errCode, err.Error())
		return
	}

	response.Success(c, http.StatusOK, "Gateway settings refreshed", resp)
}

// =====================================================
// ERROR MAPPING HELPER
// =====================================================

func mapPaymentError(err error) (statusCode int, errorCode string) {
	errorCode = model.ErrorCode(err)

	switch {
	case errors.Is(err, model.ErrInvalidPayRequest),
		errors.Is(err, model.ErrMissingSignature),
		errors.Is(err, model.ErrSignatureMismatch),
		errors.Is(err, model.ErrMissingTradeNo):
		statusCode = http.StatusBadRequest
	case errors.Is(err, model.ErrOrderNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, model.ErrForeignOrder),
		errors.Is(err, model.ErrOrderNotPending):
		statusCode = http.StatusConflict
	case errors.Is(err, model.ErrGatewayDisabled):
		statusCode = http.StatusForbidden
	case errors.Is(err, model.ErrConfiguration),
		errors.Is(err, model.ErrGatewayQuery):
		statusCode = http.StatusServiceUnavailable
	default:
		statusCode = http.StatusInternalServerError
	}

	return statusCode, errorCode
}

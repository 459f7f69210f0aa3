package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"epay-gateway/internal/domains/payment/gateway/epay"
	"epay-gateway/internal/domains/payment/model"
	svcmock "epay-gateway/internal/domains/payment/service/mock"
	"epay-gateway/internal/shared/middleware"
)

func setupRouter(svc *svcmock.MockPaymentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewPaymentHandler(svc)

	r.GET("/method", h.Method)
	r.POST("/pay", h.Pay)
	r.GET("/notify", h.Notify)
	r.POST("/notify", h.Notify)

	admin := r.Group("/admin", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, "7")
		c.Next()
	})
	admin.POST("/reconcile", h.AdminReconcile)
	admin.GET("/orders/:trade_no", h.AdminCheckOrder)
	admin.POST("/config/refresh", h.AdminRefreshConfig)
	return r
}

func TestPaymentHandler_Pay(t *testing.T) {
	svc := svcmock.NewMockPaymentService()
	svc.On("Pay", mock.Anything, model.PayRequest{
		TradeNo:     "ORD1",
		TotalAmount: 1000,
		NotifyURL:   "https://shop.example/notify",
		ReturnURL:   "https://shop.example/return",
	}).Return(&model.PayResponse{Type: 1, Data: "https://credit.example/pay/submit.php?a=1"}, nil)

	body := `{"trade_no":"ORD1","total_amount":1000,"notify_url":"https://shop.example/notify","return_url":"https://shop.example/return"}`
	req := httptest.NewRequest(http.MethodPost, "/pay", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	setupRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"type":1`)
	assert.Contains(t, w.Body.String(), "submit.php")
}

func TestPaymentHandler_PayErrors(t *testing.T) {
	t.Run("bad json", func(t *testing.T) {
		svc := svcmock.NewMockPaymentService()
		req := httptest.NewRequest(http.MethodPost, "/pay", strings.NewReader(`{`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		setupRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Pay", mock.Anything, mock.Anything)
	})

	t.Run("disabled", func(t *testing.T) {
		svc := svcmock.NewMockPaymentService()
		svc.On("Pay", mock.Anything, mock.Anything).
			Return(nil, model.NewPaymentError(model.ErrCodeGatewayDisabled, "disabled", model.ErrGatewayDisabled))

		body := `{"trade_no":"ORD1","total_amount":1000,"notify_url":"https://a.example","return_url":"https://b.example"}`
		req := httptest.NewRequest(http.MethodPost, "/pay", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		setupRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), model.ErrCodeGatewayDisabled)
	})
}

func TestPaymentHandler_Notify(t *testing.T) {
	isCallback := func(tradeNo string) interface{} {
		return mock.MatchedBy(func(p *epay.Params) bool { return p.Value("out_trade_no") == tradeNo })
	}

	t.Run("query string success", func(t *testing.T) {
		svc := svcmock.NewMockPaymentService()
		svc.On("HandleCallback", mock.Anything, isCallback("ORD1")).
			Return(&epay.CallbackResult{HostOrderID: "ORD1", GatewayOrderID: "GW1"}, nil)

		q := url.Values{"out_trade_no": {"ORD1"}, "trade_no": {"GW1"}, "sign": {"abc"}, "sign_type": {"MD5"}}
		w := httptest.NewRecorder()
		setupRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notify?"+q.Encode(), nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "success", w.Body.String())
	})

	t.Run("form body", func(t *testing.T) {
		svc := svcmock.NewMockPaymentService()
		svc.On("HandleCallback", mock.Anything, isCallback("ORD2")).
			Return(&epay.CallbackResult{HostOrderID: "ORD2"}, nil)

		form := url.Values{"out_trade_no": {"ORD2"}, "sign": {"abc"}}
		req := httptest.NewRequest(http.MethodPost, "/notify", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		setupRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, "success", w.Body.String())
	})

	t.Run("rejected", func(t *testing.T) {
		svc := svcmock.NewMockPaymentService()
		svc.On("HandleCallback", mock.Anything, mock.Anything).Return(nil, model.NewInvalidSignatureError())

		w := httptest.NewRecorder()
		setupRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notify?out_trade_no=ORD1&sign=bad", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "fail", w.Body.String())
	})
}

func TestPaymentHandler_Admin(t *testing.T) {
	t.Run("reconcile", func(t *testing.T) {
		svc := svcmock.NewMockPaymentService()
		svc.On("TriggerReconcile", mock.Anything, "7").Return(&model.ReconcileTriggerResponse{TaskID: "t1"}, nil)

		w := httptest.NewRecorder()
		setupRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/reconcile", nil))

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Contains(t, w.Body.String(), `"task_id":"t1"`)
	})

	t.Run("check order", func(t *testing.T) {
		svc := svcmock.NewMockPaymentService()
		svc.On("CheckOrder", mock.Anything, "ORD1").Return(&model.OrderStatusResponse{
			TradeNo:    "ORD1",
			Status:     model.QueryConfirmed,
			MarkedPaid: true,
		}, nil)

		w := httptest.NewRecorder()
		setupRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/orders/ORD1", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"marked_paid":true`)
	})

	t.Run("check unknown order", func(t *testing.T) {
		svc := svcmock.NewMockPaymentService()
		svc.On("CheckOrder", mock.Anything, "NOPE").Return(nil, model.ErrOrderNotFound)

		w := httptest.NewRecorder()
		setupRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/orders/NOPE", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), model.ErrCodeOrderNotFound)
	})

	t.Run("refresh config", func(t *testing.T) {
		svc := svcmock.NewMockPaymentService()
		svc.On("RefreshConfig", mock.Anything, "7").Return(&model.PaymentMethodResponse{
			Code: model.GatewayCode, Name: "Credit", Enabled: false,
		}, nil)

		w := httptest.NewRecorder()
		setupRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/config/refresh", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"enabled":false`)
		svc.AssertExpectations(t)
	})
}

func TestPaymentHandler_Method(t *testing.T) {
	svc := svcmock.NewMockPaymentService()
	svc.On("Method", mock.Anything).Return(&model.PaymentMethodResponse{
		Code: model.GatewayCode, Name: epay.DefaultDisplayName, Icon: epay.DefaultIcon, Enabled: true,
	}, nil)

	w := httptest.NewRecorder()
	setupRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/method", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), model.GatewayCode)
}

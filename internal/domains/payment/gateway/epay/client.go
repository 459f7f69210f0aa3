package epay

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"epay-gateway/internal/domains/payment/model"
	"epay-gateway/pkg/logger"
)

// maxQueryBody caps how much of a status response we read.
const maxQueryBody = 1 << 20

var hundred = decimal.NewFromInt(100)

// =====================================================
// EPAY CLIENT
// =====================================================

type Client struct {
	httpClient *http.Client
}

// NewClient builds a client for the status query endpoint. TLS certificate
// verification is disabled, so self-signed gateway certificates are accepted.
func NewClient() *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec

	return NewClientWithHTTP(&http.Client{
		Timeout:   model.QueryTimeout,
		Transport: transport,
	})
}

// NewClientWithHTTP uses hc as is. A zero timeout is raised to QueryTimeout.
func NewClientWithHTTP(hc *http.Client) *Client {
	if hc.Timeout == 0 {
		hc.Timeout = model.QueryTimeout
	}
	return &Client{httpClient: hc}
}

// =====================================================
// BUILD PAYMENT REDIRECT
// =====================================================

// BuildPaymentRedirect returns the submit.php URL the customer is sent to.
// Configuration is not validated here; a missing pid or key yields a URL the
// gateway itself rejects.
func (c *Client) BuildPaymentRedirect(cfg GatewayConfig, req PaymentRequest) string {
	params := NewParams()
	params.Set("money", FormatMoney(req.AmountMinorUnits))
	params.Set("name", req.MerchantOrderID)
	params.Set("notify_url", req.NotifyURL)
	params.Set("return_url", req.ReturnURL)
	params.Set("out_trade_no", req.MerchantOrderID)
	params.Set("pid", cfg.MerchantID)
	if cfg.PaymentType != "" {
		params.Set("type", cfg.PaymentType)
	}

	signed := SignParams(params, cfg.SharedSecret)

	return cfg.SubmitURL() + "?" + signed.Encode()
}

// FormatMoney converts minor units to the major-unit string PHP would print
// for total/100: 1000 -> "10", 1050 -> "10.5", 1 -> "0.01".
func FormatMoney(minor int64) string {
	return decimal.NewFromInt(minor).Div(hundred).String()
}

// =====================================================
// VERIFY CALLBACK
// =====================================================

// VerifyCallback checks an asynchronous notification. It never touches order
// state; the active status query is what marks orders paid.
func (c *Client) VerifyCallback(params *Params, secret string) (*CallbackResult, error) {
	if _, ok := params.Get(SignKey); !ok {
		return nil, model.NewMissingSignatureError()
	}

	if !Verify(params, secret) {
		return nil, model.NewInvalidSignatureError()
	}

	hostOrderID := params.Value("out_trade_no")
	if hostOrderID == "" {
		return nil, model.NewPaymentError(model.ErrCodeMissingTradeNo, "callback verified but out_trade_no is empty", model.ErrMissingTradeNo)
	}

	return &CallbackResult{
		HostOrderID:    hostOrderID,
		GatewayOrderID: params.Value("trade_no"),
	}, nil
}

// =====================================================
// QUERY STATUS
// =====================================================

// QueryStatus asks the gateway for the state of one order. Every failure is
// logged and folded into the result; nothing is returned as an error.
func (c *Client) QueryStatus(ctx context.Context, cfg GatewayConfig, merchantOrderID string) QueryResult {
	if cfg.BaseURL() == "" {
		err := model.NewConfigurationError(SettingURL)
		logger.Error("epay query error: url config is empty", err)
		return QueryResult{Status: model.QueryError, MerchantOrderID: merchantOrderID, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, model.QueryTimeout)
	defer cancel()

	query := NewParams()
	query.Set("act", "order")
	query.Set("pid", cfg.MerchantID)
	query.Set("key", cfg.SharedSecret)
	query.Set("out_trade_no", merchantOrderID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.QueryURL()+"?"+query.Encode(), nil)
	if err != nil {
		return queryFailed(merchantOrderID, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return queryFailed(merchantOrderID, redactURLError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxQueryBody))
	if err != nil {
		return queryFailed(merchantOrderID, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return queryFailed(merchantOrderID, fmt.Errorf("unexpected http status %d", resp.StatusCode))
	}

	var res queryResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return queryFailed(merchantOrderID, fmt.Errorf("decode response: %w", err))
	}

	return interpretQuery(merchantOrderID, res)
}

func interpretQuery(merchantOrderID string, res queryResponse) QueryResult {
	if res.Code != 1 || res.Status != 1 {
		logger.Debug("epay order not paid yet: " + merchantOrderID + " code=" + strconv.FormatInt(int64(res.Code), 10) + " status=" + strconv.FormatInt(int64(res.Status), 10))
		return QueryResult{Status: model.QueryNotConfirmed, MerchantOrderID: merchantOrderID}
	}

	echoed := string(res.OutTradeNo)
	gatewayOrderID := string(res.TradeNo)

	if echoed == "" || gatewayOrderID == "" {
		logger.Warn("epay query returned paid status without trade numbers", map[string]interface{}{
			"trade_no":     merchantOrderID,
			"out_trade_no": echoed,
			"callback_no":  gatewayOrderID,
		})
		return QueryResult{Status: model.QueryNotConfirmed, MerchantOrderID: merchantOrderID}
	}

	if echoed != merchantOrderID {
		return queryFailed(merchantOrderID, fmt.Errorf("gateway echoed out_trade_no %q", echoed))
	}

	return QueryResult{
		Status:          model.QueryConfirmed,
		MerchantOrderID: echoed,
		GatewayOrderID:  gatewayOrderID,
	}
}

func queryFailed(merchantOrderID string, err error) QueryResult {
	wrapped := model.NewGatewayQueryError(merchantOrderID, err)
	logger.ErrorWithFields("epay query error", err, map[string]interface{}{
		"trade_no": merchantOrderID,
	})
	return QueryResult{Status: model.QueryError, MerchantOrderID: merchantOrderID, Err: wrapped}
}

// redactURLError drops the request URL, which carries the shared secret.
func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s api.php: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

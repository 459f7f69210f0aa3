package epay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"epay-gateway/internal/domains/payment/model"
)

// =====================================================
// EPAY REQUEST/RESPONSE TYPES
// =====================================================

// PaymentRequest describes one outbound payment attempt.
type PaymentRequest struct {
	AmountMinorUnits int64
	MerchantOrderID  string
	NotifyURL        string
	ReturnURL        string
}

// CallbackResult carries the identifiers of a verified callback.
type CallbackResult struct {
	HostOrderID    string // out_trade_no
	GatewayOrderID string // trade_no
}

// QueryResult is the outcome of one active status query.
type QueryResult struct {
	Status          model.QueryStatus
	MerchantOrderID string
	GatewayOrderID  string
	Err             error
}

func (r QueryResult) Confirmed() bool {
	return r.Status == model.QueryConfirmed
}

// queryResponse is the JSON body of api.php?act=order. The gateway is PHP and
// may send numbers either as JSON numbers or as strings.
type queryResponse struct {
	Code       looseInt    `json:"code"`
	Msg        string      `json:"msg"`
	Status     looseInt    `json:"status"`
	OutTradeNo looseString `json:"out_trade_no"`
	TradeNo    looseString `json:"trade_no"`
	Money      looseString `json:"money"`
}

// looseInt accepts 1, "1", 1.0 and true the way PHP's == does.
type looseInt int64

func (v *looseInt) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = 0
		return nil
	}

	switch {
	case bytes.Equal(trimmed, []byte("true")):
		*v = 1
		return nil
	case bytes.Equal(trimmed, []byte("false")):
		*v = 0
		return nil
	}

	var raw string
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
	} else {
		raw = string(trimmed)
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		// Non-numeric strings never equal 1.
		*v = 0
		return nil
	}
	if f != float64(int64(f)) {
		*v = -1
		return nil
	}
	*v = looseInt(int64(f))
	return nil
}

// looseString accepts strings and numbers.
type looseString string

func (v *looseString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		*v = looseString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err == nil {
		*v = looseString(n.String())
		return nil
	}

	return fmt.Errorf("unsupported value: %s", string(trimmed))
}

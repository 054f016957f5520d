package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"tourbook/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	momoTestAccessKey = "F8BBA842ECF85"
	momoTestSecret    = "K951B6PE1waDMi640xX08PD3vg6EkVlz"
)

func newTestMomo(endpoint string) *MomoGateway {
	return NewMomoGateway("MOMOTEST", momoTestAccessKey, momoTestSecret, endpoint,
		"https://tourbook.example/api/payment/return/momo",
		"https://tourbook.example/api/payment/ipn/momo", zap.NewNop())
}

// signMomoIPN fills in the signature Momo would compute over the IPN fields.
func signMomoIPN(ipn momoIPN) momoIPN {
	raw := fmt.Sprintf(
		"accessKey=%s&amount=%d&extraData=%s&message=%s&orderId=%s&orderInfo=%s&orderType=%s&partnerCode=%s&payType=%s&requestId=%s&responseTime=%d&resultCode=%d&transId=%d",
		momoTestAccessKey, ipn.Amount, ipn.ExtraData, ipn.Message, ipn.OrderID, ipn.OrderInfo, ipn.OrderType,
		ipn.PartnerCode, ipn.PayType, ipn.RequestID, ipn.ResponseTime, ipn.ResultCode, ipn.TransID,
	)
	ipn.Signature = hmacSHA256(momoTestSecret, raw)
	return ipn
}

func sampleIPN() momoIPN {
	return signMomoIPN(momoIPN{
		PartnerCode:  "MOMOTEST",
		OrderID:      "ref-001",
		RequestID:    "req-001",
		Amount:       1000000,
		OrderInfo:    "Tour booking bk-1",
		OrderType:    "momo_wallet",
		TransID:      2147483647,
		ResultCode:   0,
		Message:      "Successful.",
		PayType:      "qr",
		ResponseTime: 1748770200000,
	})
}

func TestMomoInitiateReturnsPayURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req momoCreateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// The create request must arrive signed with our secret.
		raw := fmt.Sprintf(
			"accessKey=%s&amount=%s&extraData=%s&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=captureWallet",
			req.AccessKey, req.Amount, req.ExtraData, req.IPNURL, req.OrderID, req.OrderInfo,
			req.PartnerCode, req.RedirectURL, req.RequestID,
		)
		assert.Equal(t, hmacSHA256(momoTestSecret, raw), req.Signature)
		assert.Equal(t, "1000000", req.Amount)
		assert.Equal(t, "ref-001", req.OrderID)

		json.NewEncoder(w).Encode(momoCreateResponse{ResultCode: 0, PayURL: "https://test-payment.momo.vn/pay/abc"})
	}))
	defer srv.Close()

	g := newTestMomo(srv.URL)
	payURL, err := g.Initiate(context.Background(), testBooking(), "ref-001")
	require.NoError(t, err)
	assert.Equal(t, "https://test-payment.momo.vn/pay/abc", payURL)
}

func TestMomoInitiateRejectedByProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(momoCreateResponse{ResultCode: 41, Message: "duplicate orderId"})
	}))
	defer srv.Close()

	g := newTestMomo(srv.URL)
	_, err := g.Initiate(context.Background(), testBooking(), "ref-001")
	var gErr *GatewayError
	require.ErrorAs(t, err, &gErr)
	assert.Contains(t, gErr.Error(), "code=41")
}

func TestMomoInitiateNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	g := newTestMomo(srv.URL)
	_, err := g.Initiate(context.Background(), testBooking(), "ref-001")
	var gErr *GatewayError
	require.ErrorAs(t, err, &gErr)
}

func TestMomoVerifyIPNBody(t *testing.T) {
	g := newTestMomo("unused")
	body, err := json.Marshal(sampleIPN())
	require.NoError(t, err)

	result, err := g.VerifyCallback(body)
	require.NoError(t, err)
	assert.Equal(t, models.ProviderMomo, result.Provider)
	assert.Equal(t, "ref-001", result.ProviderRef)
	assert.Equal(t, "2147483647", result.TxnRef)
	assert.Equal(t, int64(1000000), result.Amount)
	assert.True(t, result.Success)
	assert.Equal(t, "0", result.ResponseCode)
}

func TestMomoVerifyFailedResult(t *testing.T) {
	g := newTestMomo("unused")

	ipn := sampleIPN()
	ipn.ResultCode = 1006 // user declined
	ipn.Message = "Transaction denied by user."
	body, err := json.Marshal(signMomoIPN(ipn))
	require.NoError(t, err)

	result, err := g.VerifyCallback(body)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "1006", result.ResponseCode)
}

func TestMomoVerifyRejectsTampering(t *testing.T) {
	g := newTestMomo("unused")

	tamper := func(mutate func(*momoIPN)) []byte {
		ipn := sampleIPN() // signed over the original values
		mutate(&ipn)
		body, _ := json.Marshal(ipn)
		return body
	}

	tests := []struct {
		name    string
		payload []byte
	}{
		{"inflated amount", tamper(func(ipn *momoIPN) { ipn.Amount = 1 })},
		{"swapped order", tamper(func(ipn *momoIPN) { ipn.OrderID = "ref-999" })},
		{"forged result code", tamper(func(ipn *momoIPN) { ipn.ResultCode = 0; ipn.TransID++ })},
		{"stripped signature", tamper(func(ipn *momoIPN) { ipn.Signature = "" })},
		{"garbage body", []byte("{not json")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := g.VerifyCallback(tc.payload)
			var vErr *VerificationError
			require.ErrorAs(t, err, &vErr)
		})
	}
}

func TestMomoVerifyReturnQueryString(t *testing.T) {
	g := newTestMomo("unused")
	ipn := sampleIPN()

	values := url.Values{}
	values.Set("partnerCode", ipn.PartnerCode)
	values.Set("orderId", ipn.OrderID)
	values.Set("requestId", ipn.RequestID)
	values.Set("amount", strconv.FormatInt(ipn.Amount, 10))
	values.Set("orderInfo", ipn.OrderInfo)
	values.Set("orderType", ipn.OrderType)
	values.Set("transId", strconv.FormatInt(ipn.TransID, 10))
	values.Set("resultCode", strconv.Itoa(ipn.ResultCode))
	values.Set("message", ipn.Message)
	values.Set("payType", ipn.PayType)
	values.Set("responseTime", strconv.FormatInt(ipn.ResponseTime, 10))
	values.Set("extraData", ipn.ExtraData)
	values.Set("signature", ipn.Signature)

	result, err := g.VerifyCallback([]byte(values.Encode()))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "ref-001", result.ProviderRef)
	assert.Equal(t, int64(1000000), result.Amount)
}

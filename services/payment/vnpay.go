package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"tourbook/models"

	"go.uber.org/zap"
)

// VNPayGateway implements Gateway for the VNPay redirect flow. Initiation is
// pure URL construction (the customer's browser carries the request), and the
// callback comes back as signed query parameters on both the return URL and
// the IPN.
type VNPayGateway struct {
	tmnCode    string
	hashSecret string
	payURL     string
	returnURL  string
	logger     *zap.Logger

	// now is swappable for tests; vnp_CreateDate is part of the signed payload.
	now func() time.Time
}

// NewVNPayGateway constructs the VNPay adapter.
func NewVNPayGateway(tmnCode, hashSecret, payURL, returnURL string, logger *zap.Logger) *VNPayGateway {
	return &VNPayGateway{
		tmnCode:    tmnCode,
		hashSecret: hashSecret,
		payURL:     payURL,
		returnURL:  returnURL,
		logger:     logger,
		now:        time.Now,
	}
}

func (g *VNPayGateway) Provider() models.PaymentProvider {
	return models.ProviderVNPay
}

// Initiate builds the signed pay URL. VNPay signs an HMAC-SHA512 over the
// alphabetically sorted, URL-encoded parameter string.
func (g *VNPayGateway) Initiate(_ context.Context, booking *models.Booking, providerRef string) (string, error) {
	if g.tmnCode == "" || g.hashSecret == "" {
		return "", &GatewayError{Provider: g.Provider(), Err: fmt.Errorf("vnpay credentials not configured")}
	}

	params := map[string]string{
		"vnp_Version":    "2.1.0",
		"vnp_Command":    "pay",
		"vnp_TmnCode":    g.tmnCode,
		"vnp_Amount":     strconv.FormatInt(booking.TotalPrice*100, 10), // VNPay wants amount x100
		"vnp_CurrCode":   "VND",
		"vnp_TxnRef":     providerRef,
		"vnp_OrderInfo":  fmt.Sprintf("Tour booking %s", booking.ID),
		"vnp_OrderType":  "other",
		"vnp_Locale":     "vn",
		"vnp_ReturnUrl":  g.returnURL,
		"vnp_CreateDate": g.now().Format("20060102150405"),
	}

	query := canonicalQuery(params)
	signature := hmacSHA512(g.hashSecret, query)
	return g.payURL + "?" + query + "&vnp_SecureHash=" + signature, nil
}

// VerifyCallback authenticates the raw query string of a return request or
// IPN by recomputing the HMAC over every vnp_ parameter except the hash
// itself. "00" is VNPay's only success response code.
func (g *VNPayGateway) VerifyCallback(raw []byte) (*models.CallbackResult, error) {
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, &VerificationError{Provider: g.Provider(), Reason: "malformed query payload"}
	}

	received := values.Get("vnp_SecureHash")
	if received == "" {
		return nil, &VerificationError{Provider: g.Provider(), Reason: "missing vnp_SecureHash"}
	}

	params := make(map[string]string)
	for key := range values {
		if key == "vnp_SecureHash" || key == "vnp_SecureHashType" {
			continue
		}
		if strings.HasPrefix(key, "vnp_") {
			params[key] = values.Get(key)
		}
	}

	expected := hmacSHA512(g.hashSecret, canonicalQuery(params))
	if !hmac.Equal([]byte(expected), []byte(received)) {
		g.logger.Warn("vnpay callback signature mismatch",
			zap.String("txn_ref", values.Get("vnp_TxnRef")))
		return nil, &VerificationError{Provider: g.Provider(), Reason: "signature mismatch"}
	}

	rawAmount, err := strconv.ParseInt(values.Get("vnp_Amount"), 10, 64)
	if err != nil {
		return nil, &VerificationError{Provider: g.Provider(), Reason: "invalid amount field"}
	}

	code := values.Get("vnp_ResponseCode")
	return &models.CallbackResult{
		Provider:     g.Provider(),
		ProviderRef:  values.Get("vnp_TxnRef"),
		TxnRef:       values.Get("vnp_TransactionNo"),
		Amount:       rawAmount / 100,
		Success:      code == "00",
		ResponseCode: code,
	}, nil
}

// canonicalQuery sorts keys alphabetically and URL-encodes values, the order
// VNPay hashes over.
func canonicalQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(k))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(params[k]))
	}
	return sb.String()
}

func hmacSHA512(secret, data string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

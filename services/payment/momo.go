package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tourbook/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MomoGateway implements Gateway for Momo's create-payment API. Unlike VNPay,
// initiation is a server-to-server POST; the pay URL comes out of the
// response. The IPN is a JSON body signed with HMAC-SHA256 over a canonical
// key=value raw-signature string.
type MomoGateway struct {
	partnerCode string
	accessKey   string
	secretKey   string
	endpoint    string
	redirectURL string
	ipnURL      string
	client      *http.Client
	logger      *zap.Logger
}

// NewMomoGateway constructs the Momo adapter.
func NewMomoGateway(partnerCode, accessKey, secretKey, endpoint, redirectURL, ipnURL string, logger *zap.Logger) *MomoGateway {
	return &MomoGateway{
		partnerCode: partnerCode,
		accessKey:   accessKey,
		secretKey:   secretKey,
		endpoint:    endpoint,
		redirectURL: redirectURL,
		ipnURL:      ipnURL,
		client:      &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
	}
}

func (g *MomoGateway) Provider() models.PaymentProvider {
	return models.ProviderMomo
}

type momoCreateRequest struct {
	PartnerCode string `json:"partnerCode"`
	AccessKey   string `json:"accessKey"`
	RequestID   string `json:"requestId"`
	Amount      string `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IPNURL      string `json:"ipnUrl"`
	ExtraData   string `json:"extraData"`
	RequestType string `json:"requestType"`
	Signature   string `json:"signature"`
}

type momoCreateResponse struct {
	ResultCode int    `json:"resultCode"`
	Message    string `json:"message"`
	PayURL     string `json:"payUrl"`
}

// momoIPN is the callback body Momo posts to the IPN URL.
type momoIPN struct {
	PartnerCode  string `json:"partnerCode"`
	OrderID      string `json:"orderId"`
	RequestID    string `json:"requestId"`
	Amount       int64  `json:"amount"`
	OrderInfo    string `json:"orderInfo"`
	OrderType    string `json:"orderType"`
	TransID      int64  `json:"transId"`
	ResultCode   int    `json:"resultCode"`
	Message      string `json:"message"`
	PayType      string `json:"payType"`
	ResponseTime int64  `json:"responseTime"`
	ExtraData    string `json:"extraData"`
	Signature    string `json:"signature"`
}

// Initiate posts a signed create-payment request and returns the pay URL.
// Network failure or a non-zero result code surfaces as GatewayError; the
// caller keeps the booking Confirmed and may retry.
func (g *MomoGateway) Initiate(ctx context.Context, booking *models.Booking, providerRef string) (string, error) {
	requestID := uuid.New().String()
	amount := strconv.FormatInt(booking.TotalPrice, 10)
	orderInfo := fmt.Sprintf("Tour booking %s", booking.ID)

	rawSignature := fmt.Sprintf(
		"accessKey=%s&amount=%s&extraData=%s&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=captureWallet",
		g.accessKey, amount, "", g.ipnURL, providerRef, orderInfo, g.partnerCode, g.redirectURL, requestID,
	)

	req := momoCreateRequest{
		PartnerCode: g.partnerCode,
		AccessKey:   g.accessKey,
		RequestID:   requestID,
		Amount:      amount,
		OrderID:     providerRef,
		OrderInfo:   orderInfo,
		RedirectURL: g.redirectURL,
		IPNURL:      g.ipnURL,
		ExtraData:   "",
		RequestType: "captureWallet",
		Signature:   hmacSHA256(g.secretKey, rawSignature),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", &GatewayError{Provider: g.Provider(), Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &GatewayError{Provider: g.Provider(), Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", &GatewayError{Provider: g.Provider(), Err: err}
	}
	defer resp.Body.Close()

	var created momoCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", &GatewayError{Provider: g.Provider(), Err: fmt.Errorf("malformed create response: %w", err)}
	}
	if created.ResultCode != 0 || created.PayURL == "" {
		return "", &GatewayError{
			Provider: g.Provider(),
			Err:      fmt.Errorf("create payment rejected: code=%d message=%s", created.ResultCode, created.Message),
		}
	}
	return created.PayURL, nil
}

// VerifyCallback authenticates an IPN body or a return-URL query string
// (Momo signs both with the same raw-signature format). Momo hashes the
// fields in a fixed alphabetical order; resultCode 0 is the only success.
func (g *MomoGateway) VerifyCallback(raw []byte) (*models.CallbackResult, error) {
	var ipn momoIPN
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &ipn); err != nil {
			return nil, &VerificationError{Provider: g.Provider(), Reason: "malformed JSON payload"}
		}
	} else {
		parsed, err := parseMomoQuery(string(trimmed))
		if err != nil {
			return nil, &VerificationError{Provider: g.Provider(), Reason: "malformed query payload"}
		}
		ipn = *parsed
	}
	if ipn.Signature == "" {
		return nil, &VerificationError{Provider: g.Provider(), Reason: "missing signature"}
	}

	rawSignature := fmt.Sprintf(
		"accessKey=%s&amount=%d&extraData=%s&message=%s&orderId=%s&orderInfo=%s&orderType=%s&partnerCode=%s&payType=%s&requestId=%s&responseTime=%d&resultCode=%d&transId=%d",
		g.accessKey, ipn.Amount, ipn.ExtraData, ipn.Message, ipn.OrderID, ipn.OrderInfo, ipn.OrderType,
		ipn.PartnerCode, ipn.PayType, ipn.RequestID, ipn.ResponseTime, ipn.ResultCode, ipn.TransID,
	)
	expected := hmacSHA256(g.secretKey, rawSignature)
	if !hmac.Equal([]byte(expected), []byte(ipn.Signature)) {
		g.logger.Warn("momo callback signature mismatch", zap.String("order_id", ipn.OrderID))
		return nil, &VerificationError{Provider: g.Provider(), Reason: "signature mismatch"}
	}

	return &models.CallbackResult{
		Provider:     g.Provider(),
		ProviderRef:  ipn.OrderID,
		TxnRef:       strconv.FormatInt(ipn.TransID, 10),
		Amount:       ipn.Amount,
		Success:      ipn.ResultCode == 0,
		ResponseCode: strconv.Itoa(ipn.ResultCode),
	}, nil
}

// parseMomoQuery maps a signed return-URL query string onto the IPN shape.
func parseMomoQuery(raw string) (*momoIPN, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, err
	}
	amount, err := strconv.ParseInt(values.Get("amount"), 10, 64)
	if err != nil {
		return nil, err
	}
	transID, _ := strconv.ParseInt(values.Get("transId"), 10, 64)
	resultCode, err := strconv.Atoi(values.Get("resultCode"))
	if err != nil {
		return nil, err
	}
	responseTime, _ := strconv.ParseInt(values.Get("responseTime"), 10, 64)

	return &momoIPN{
		PartnerCode:  values.Get("partnerCode"),
		OrderID:      values.Get("orderId"),
		RequestID:    values.Get("requestId"),
		Amount:       amount,
		OrderInfo:    values.Get("orderInfo"),
		OrderType:    values.Get("orderType"),
		TransID:      transID,
		ResultCode:   resultCode,
		Message:      values.Get("message"),
		PayType:      values.Get("payType"),
		ResponseTime: responseTime,
		ExtraData:    values.Get("extraData"),
		Signature:    values.Get("signature"),
	}, nil
}

func hmacSHA256(secret, data string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

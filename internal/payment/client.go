package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var ErrVerificationFailed = errors.New("payment verification failed")

// OrderRequest is the server-mediated create-order payload. Amount is in the
// currency's minor unit.
type OrderRequest struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	CustomerID  string `json:"customerId"`
	Receipt     string `json:"receipt"`
}

// Order is the provider-side order handle the hosted checkout widget is
// opened with.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// Callback is what the hosted checkout posts back after a successful charge.
type Callback struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}

// Client drives the three server-mediated payment calls: create an order,
// verify a captured payment, and check a callback signature.
type Client struct {
	HTTP          *http.Client
	BaseURL       string
	webhookSecret string
}

func NewClient(baseURL, webhookSecret string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{HTTP: httpClient, BaseURL: baseURL, webhookSecret: webhookSecret}
}

func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	hreq, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/create-order", bytes.NewReader(body))
	hreq.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("create payment order: %s", res.Status)
	}
	var po Order
	if err := json.NewDecoder(res.Body).Decode(&po); err != nil {
		return nil, err
	}
	return &po, nil
}

// VerifyPayment asks the payment backend to confirm the charge matching the
// callback. Any non-200 answer means the charge must not be trusted.
func (c *Client) VerifyPayment(ctx context.Context, cb Callback) error {
	body, err := json.Marshal(cb)
	if err != nil {
		return err
	}
	hreq, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/verify-payment", bytes.NewReader(body))
	hreq.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(hreq)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrVerificationFailed, res.Status)
	}
	return nil
}

// VerifySignature checks the callback's HMAC-SHA256 signature over
// "<orderID>|<paymentID>", the hosted checkout's standard contract.
func (c *Client) VerifySignature(cb Callback) bool {
	if c.webhookSecret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write([]byte(cb.OrderID + "|" + cb.PaymentID))
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(cb.Signature))
}

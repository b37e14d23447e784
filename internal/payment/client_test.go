package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestCreateOrder(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/create-order", r.URL.Path)

		var req OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(90000), req.Amount)
		assert.Equal(t, "INR", req.Currency)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Order{
			ID:       "order_abc",
			Amount:   req.Amount,
			Currency: req.Currency,
			Status:   "created",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", nil)
	po, err := c.CreateOrder(context.Background(), OrderRequest{
		Amount:   90000,
		Currency: "INR",
		Receipt:  "rcpt_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "order_abc", po.ID)
	assert.Equal(t, "created", po.Status)
}

func TestVerifyPayment_Rejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"signature mismatch"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", nil)
	err := c.VerifyPayment(context.Background(), Callback{OrderID: "order_abc", PaymentID: "pay_1"})
	assert.True(t, errors.Is(err, ErrVerificationFailed), "err=%v", err)
}

func TestVerifyPayment_OK(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var cb Callback
		require.NoError(t, json.NewDecoder(r.Body).Decode(&cb))
		assert.Equal(t, "order_abc", cb.OrderID)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", nil)
	assert.NoError(t, c.VerifyPayment(context.Background(), Callback{OrderID: "order_abc", PaymentID: "pay_1"}))
}

func TestVerifySignature(t *testing.T) {
	t.Parallel()

	c := NewClient("http://payments", "topsecret", nil)

	good := Callback{
		OrderID:   "order_abc",
		PaymentID: "pay_1",
		Signature: sign("topsecret", "order_abc", "pay_1"),
	}
	assert.True(t, c.VerifySignature(good))

	tampered := good
	tampered.PaymentID = "pay_2"
	assert.False(t, c.VerifySignature(tampered))

	wrongKey := good
	wrongKey.Signature = sign("othersecret", "order_abc", "pay_1")
	assert.False(t, c.VerifySignature(wrongKey))
}

func TestVerifySignature_NoSecretConfigured(t *testing.T) {
	t.Parallel()

	c := NewClient("http://payments", "", nil)
	cb := Callback{OrderID: "o", PaymentID: "p", Signature: sign("", "o", "p")}
	assert.False(t, c.VerifySignature(cb), "unconfigured secret must reject everything")
}

package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/pawmart/storefront/internal/auth"
	"github.com/pawmart/storefront/internal/cart"
	"github.com/pawmart/storefront/internal/catalog"
	"github.com/pawmart/storefront/internal/checkout"
	"github.com/pawmart/storefront/internal/games"
	"github.com/pawmart/storefront/internal/payment"
	"github.com/pawmart/storefront/internal/video"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

// testUpstream fakes both the identity provider and the commerce API behind
// one server. Tokens are mapped straight to identities.
type testUpstream struct {
	mu          sync.Mutex
	tokens      map[string]auth.Identity
	carts       map[string]*cart.Cart
	items       map[int64]catalog.Item
	cartFetches int

	srv *httptest.Server
}

func newTestUpstream(t *testing.T) *testUpstream {
	t.Helper()
	u := &testUpstream{
		tokens: map[string]auth.Identity{},
		carts:  map[string]*cart.Cart{},
		items:  map[int64]catalog.Item{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		u.mu.Lock()
		id, ok := u.tokens[tok]
		u.mu.Unlock()
		if !ok {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(id)
	})
	mux.HandleFunc("/getCart/", func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimPrefix(r.URL.Path, "/getCart/")
		u.mu.Lock()
		u.cartFetches++
		ct, ok := u.carts[user]
		var body []byte
		if ok {
			body, _ = json.Marshal(ct)
		}
		u.mu.Unlock()
		if !ok {
			http.Error(w, `{"error":"cart not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})
	mux.HandleFunc("/createCart/", func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimPrefix(r.URL.Path, "/createCart/")
		u.mu.Lock()
		ct, ok := u.carts[user]
		if !ok {
			ct = &cart.Cart{CartID: 1, UserID: user}
			u.carts[user] = ct
		}
		body, _ := json.Marshal(ct)
		u.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})
	mux.HandleFunc("/getItemById/", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/getItemById/"), 10, 64)
		u.mu.Lock()
		it, ok := u.items[id]
		u.mu.Unlock()
		if !ok {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(it)
	})
	mux.HandleFunc("/getUserAddress/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"no address"}`, http.StatusNotFound)
	})

	u.srv = httptest.NewServer(mux)
	t.Cleanup(u.srv.Close)
	return u
}

func (u *testUpstream) fetches() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.cartFetches
}

const webhookSecret = "test-webhook-secret"

func newTestApp(t *testing.T, u *testUpstream) (app, *gin.Engine) {
	t.Helper()
	session := auth.NewSession(auth.NewHTTPProvider(u.srv.URL, nil), nil, nil)
	items := catalog.New(u.srv.URL, nil)
	carts := cart.NewClient(u.srv.URL, nil)
	agg := cart.NewAggregator(carts, items, nil, 4)
	orders := checkout.NewOrdersClient(u.srv.URL, nil)
	addresses := checkout.NewAddressClient(u.srv.URL, nil)
	payments := payment.NewClient(u.srv.URL, webhookSecret, nil)
	svc := checkout.NewService(agg, orders, addresses, payments, nil, nil, nil)

	registry := games.NewRegistry()
	registry.Register("cricket", func() games.Game { return games.NewCricket() })

	a := app{
		session:  session,
		agg:      agg,
		carts:    carts,
		items:    items,
		orders:   orders,
		checkout: svc,
		payments: payments,
		videos:   video.New(u.srv.URL, nil),
		registry: registry,
	}
	return a, newRouter(a)
}

// An unauthenticated cart request is refused at the gate: no upstream call is
// ever made on its behalf.
func TestCart_RequiresAuth(t *testing.T) {
	u := newTestUpstream(t)
	_, r := newTestApp(t, u)

	for _, hdr := range []string{"", "Bearer bogus-token"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		if hdr != "" {
			req.Header.Set("Authorization", hdr)
		}
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status=%d, want 401", w.Code)
		}
	}
	if u.fetches() != 0 {
		t.Fatalf("cartFetches=%d, want 0 without a session", u.fetches())
	}
}

func TestCart_AuthorizedView(t *testing.T) {
	u := newTestUpstream(t)
	u.tokens["tok-u1"] = auth.Identity{UserID: "u1", Role: "customer"}
	u.carts["u1"] = &cart.Cart{CartID: 7, UserID: "u1", Items: []cart.Item{
		{CartItemID: 1, ItemInventoryID: 100, Quantity: 2},
	}}
	u.items[100] = catalog.Item{ItemID: 100, Name: "Leash", PricePerUnit: 250}

	_, r := newTestApp(t, u)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer tok-u1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var view cart.View
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if len(view.Lines) != 1 || view.Lines[0].Details == nil || view.Lines[0].Details.Name != "Leash" {
		t.Fatalf("view=%+v", view)
	}
}

func TestDeleteItem_AdminOnly(t *testing.T) {
	u := newTestUpstream(t)
	u.tokens["tok-u1"] = auth.Identity{UserID: "u1", Role: "customer"}

	_, r := newTestApp(t, u)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/items/5", nil)
	req.Header.Set("Authorization", "Bearer tok-u1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status=%d, want 403 for non-admin", w.Code)
	}
}

func TestPaymentCallback_BadSignature(t *testing.T) {
	u := newTestUpstream(t)
	_, r := newTestApp(t, u)

	cb := payment.Callback{OrderID: "order_1", PaymentID: "pay_1", Signature: "forged"}
	body, _ := json.Marshal(cb)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payment/callback", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401 for a forged signature", w.Code)
	}
}

func TestPaymentCallback_UnknownOrder(t *testing.T) {
	u := newTestUpstream(t)
	_, r := newTestApp(t, u)

	cb := payment.Callback{OrderID: "order_1", PaymentID: "pay_1"}
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write([]byte(cb.OrderID + "|" + cb.PaymentID))
	cb.Signature = hex.EncodeToString(mac.Sum(nil))
	body, _ := json.Marshal(cb)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payment/callback", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404 for an unmatched order", w.Code)
	}
}

func TestListGames(t *testing.T) {
	u := newTestUpstream(t)
	_, r := newTestApp(t, u)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/games", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var names []string
	if err := json.Unmarshal(w.Body.Bytes(), &names); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(names) != 1 || names[0] != "cricket" {
		t.Fatalf("names=%v, want [cricket]", names)
	}
}

package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// OrdersClient wraps the commerce order endpoints. The order's shape is
// determined entirely server-side, so responses stay opaque raw JSON.
type OrdersClient struct {
	HTTP    *http.Client
	BaseURL string
}

func NewOrdersClient(baseURL string, httpClient *http.Client) *OrdersClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OrdersClient{HTTP: httpClient, BaseURL: baseURL}
}

// Place finalizes the user's current cart into a domain order.
func (c *OrdersClient) Place(ctx context.Context, userID string) (json.RawMessage, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/createOrder/%s", c.BaseURL, url.PathEscape(userID)), nil)
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("place order: %s", res.Status)
	}
	var raw json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *OrdersClient) List(ctx context.Context, userID string) ([]json.RawMessage, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/getOrders/%s", c.BaseURL, url.PathEscape(userID)), nil)
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list orders: %s", res.Status)
	}
	var raw []json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *OrdersClient) Status(ctx context.Context, orderID int64) (string, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/getOrderStatus/%d", c.BaseURL, orderID), nil)
	res, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("order status %d: %s", orderID, res.Status)
	}
	var status string
	if err := json.NewDecoder(res.Body).Decode(&status); err != nil {
		return "", err
	}
	return status, nil
}

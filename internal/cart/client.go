package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

var ErrNotFound = errors.New("cart not found")

// Client wraps the commerce cart endpoints. A 404 from Get is a legitimate
// signal that the user has no cart yet, surfaced as ErrNotFound.
type Client struct {
	HTTP    *http.Client
	BaseURL string
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{HTTP: httpClient, BaseURL: baseURL}
}

func (c *Client) Get(ctx context.Context, userID string) (*Cart, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/getCart/%s", c.BaseURL, url.PathEscape(userID)), nil)
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("get cart: %s", res.Status)
	}
	var ct Cart
	if err := json.NewDecoder(res.Body).Decode(&ct); err != nil {
		return nil, err
	}
	return &ct, nil
}

func (c *Client) Create(ctx context.Context, userID string) (*Cart, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/createCart/%s", c.BaseURL, url.PathEscape(userID)), nil)
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("create cart: %s", res.Status)
	}
	var ct Cart
	if err := json.NewDecoder(res.Body).Decode(&ct); err != nil {
		return nil, err
	}
	return &ct, nil
}

func (c *Client) AddItem(ctx context.Context, userID string, itemID int64, quantity int) error {
	u := fmt.Sprintf("%s/addItemToCart/%d/quantity/%d?userId=%s",
		c.BaseURL, itemID, quantity, url.QueryEscape(userID))
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	switch res.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("add item %d: %s", itemID, res.Status)
	}
}

func (c *Client) RemoveItem(ctx context.Context, userID string, cartItemID int64) error {
	u := fmt.Sprintf("%s/removeItemFromCart/itemCartId/%d?userId=%s",
		c.BaseURL, cartItemID, url.QueryEscape(userID))
	req, _ := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	switch res.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("remove cart item %d: %s", cartItemID, res.Status)
	}
}

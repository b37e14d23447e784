package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

var ErrNoAddress = errors.New("no saved address")

// UserAddress is the one default-flaggable shipping address per user.
type UserAddress struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Street      string `json:"street"`
	City        string `json:"city"`
	State       string `json:"state"`
	ZipCode     string `json:"zipCode"`
	Country     string `json:"country"`
	IsDefault   bool   `json:"isDefaultAddress"`
	CreatedAt   string `json:"createdAt"`
}

type AddressClient struct {
	HTTP    *http.Client
	BaseURL string
}

func NewAddressClient(baseURL string, httpClient *http.Client) *AddressClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AddressClient{HTTP: httpClient, BaseURL: baseURL}
}

func (c *AddressClient) Get(ctx context.Context, userID string) (*UserAddress, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/getUserAddress/%s", c.BaseURL, url.PathEscape(userID)), nil)
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNoAddress
	default:
		return nil, fmt.Errorf("get address: %s", res.Status)
	}
	var a UserAddress
	if err := json.NewDecoder(res.Body).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *AddressClient) Save(ctx context.Context, a UserAddress) (*UserAddress, error) {
	body, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/userAddress", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("save address: %s", res.Status)
	}
	var saved UserAddress
	if err := json.NewDecoder(res.Body).Decode(&saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

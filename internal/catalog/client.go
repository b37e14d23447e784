package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"
)

var ErrNotFound = errors.New("item not found")

// Upload is one image to push through the pre-signed URL returned by Create.
type Upload struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Client is a thin wrapper over the commerce item endpoints: request in,
// decoded response out. No retries, no caching.
type Client struct {
	HTTP    *http.Client
	BaseURL string
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{HTTP: httpClient, BaseURL: baseURL}
}

func (c *Client) Item(ctx context.Context, itemID int64) (*Item, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/getItemById/%d", c.BaseURL, itemID), nil)
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
		return nil, fmt.Errorf("get item %d: %s", itemID, res.Status)
	}
	var it Item
	if err := json.NewDecoder(res.Body).Decode(&it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (c *Client) Items(ctx context.Context) ([]Item, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/getAllItems", nil)
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list items: %s", res.Status)
	}
	var items []Item
	if err := json.NewDecoder(res.Body).Decode(&items); err != nil {
		return nil, err
	}
	return items, nil
}

// Create posts the item and then pushes each file's raw bytes to the
// pre-signed URL the API returned for it, one URL per submitted image.
func (c *Client) Create(ctx context.Context, item *Item, files []Upload) error {
	body, err := json.Marshal(item)
	if err != nil {
		return err
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/addNewItem", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return fmt.Errorf("create item: %s", res.Status)
	}
	var uploadURLs []string
	if err := json.NewDecoder(res.Body).Decode(&uploadURLs); err != nil {
		return err
	}
	if len(uploadURLs) < len(files) {
		return fmt.Errorf("create item: %d upload urls for %d files", len(uploadURLs), len(files))
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := range files {
		f, url := files[i], uploadURLs[i]
		g.Go(func() error {
			return c.put(ctx, url, f)
		})
	}
	return g.Wait()
}

func (c *Client) put(ctx context.Context, url string, f Upload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(f.Body))
	if err != nil {
		return err
	}
	if f.ContentType != "" {
		req.Header.Set("Content-Type", f.ContentType)
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", f.Filename, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("upload %s: %s", f.Filename, res.Status)
	}
	return nil
}

func (c *Client) Update(ctx context.Context, itemID int64, item *Item) (*Item, error) {
	body, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/updateItem/%d", c.BaseURL, itemID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
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
		return nil, fmt.Errorf("update item %d: %s", itemID, res.Status)
	}
	var updated Item
	if err := json.NewDecoder(res.Body).Decode(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) Delete(ctx context.Context, itemID int64) error {
	req, _ := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/deleteItem/%d", c.BaseURL, itemID), nil)
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
		return fmt.Errorf("delete item %d: %s", itemID, res.Status)
	}
}

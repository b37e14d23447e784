package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Client wraps the pet-video feed endpoints. Uploads use the same two-phase
// protocol as the catalog: ask for a pre-signed URL, then PUT the bytes.
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

// UploadURL requests a pre-signed destination for the named file, tagged with
// the feed's mood/tag metadata.
func (c *Client) UploadURL(ctx context.Context, filename, moods, tags string) (string, error) {
	payload, err := json.Marshal(map[string]string{"moods": moods, "tags": tags})
	if err != nil {
		return "", err
	}
	u := fmt.Sprintf("%s/uploadUrl?filename=%s", c.BaseURL, url.QueryEscape(filename))
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload url: %s", res.Status)
	}
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Upload PUTs the raw video bytes to a pre-signed URL.
func (c *Client) Upload(ctx context.Context, presignedURL string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presignedURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "video/mp4")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("video upload: %s", res.Status)
	}
	return nil
}

// FeedURLs lists playable video URLs filtered by tags and moods.
func (c *Client) FeedURLs(ctx context.Context, tags, moods string) ([]string, error) {
	u := fmt.Sprintf("%s/video/url?tags=%s&moods=%s",
		c.BaseURL, url.QueryEscape(tags), url.QueryEscape(moods))
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("video feed: %s", res.Status)
	}
	var urls []string
	if err := json.NewDecoder(res.Body).Decode(&urls); err != nil {
		return nil, err
	}
	return urls, nil
}

package catalog

import "strings"

// Item mirrors the commerce API's item inventory resource. The wire format
// joins every image URL into one comma-separated ImageURL string; Gallery and
// Thumbnail are the only places that format is allowed to leak.
type Item struct {
	ItemID           int64    `json:"itemId"`
	Name             string   `json:"itemName"`
	Description      string   `json:"itemDescription"`
	DogName          string   `json:"dogName"`
	PricePerUnit     float64  `json:"pricePerUnit"`
	Quantity         int      `json:"quantity"`
	Category         string   `json:"category"`
	SubCategory      string   `json:"subCategory"`
	Filenames        []string `json:"filenames"`
	ImageURL         string   `json:"imageUrl"`
	MaxOrderQuantity int      `json:"maxOrderQuantity"`
}

// Gallery returns every image URL in upload order.
func (i *Item) Gallery() []string {
	if i.ImageURL == "" {
		return nil
	}
	parts := strings.Split(i.ImageURL, ",")
	urls := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			urls = append(urls, p)
		}
	}
	return urls
}

// Thumbnail returns the representative image, the first of the gallery.
func (i *Item) Thumbnail() string {
	if g := i.Gallery(); len(g) > 0 {
		return g[0]
	}
	return ""
}

package domain

import "time"

// Listing is one classified ad as observed on the monitored page. It is
// immutable once built; a later crawl that finds the same ID with different
// fields is not treated as an update.
//
// The JSON field names are the wire contract with downstream clients and must
// not change.
type Listing struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Price     string    `json:"price"`
	Year      string    `json:"year"`
	Km        string    `json:"km"`
	Link      string    `json:"link"`
	ImageURL  string    `json:"image_url"`
	CrawledAt time.Time `json:"crawled_at"`
	Source    string    `json:"source"`
}

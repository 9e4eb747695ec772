package models

import "time"

// NewsItem is a news record as stored in the database and mirrored in the cache
type NewsItem struct {
	ID       int64     `json:"id,omitempty"`
	Time     time.Time `json:"time"`
	Keywords string    `json:"keywords,omitempty"`
	Text     string    `json:"text" validate:"required,notblank"`
	IsSent   *bool     `json:"is_sent,omitempty"`
}

// Persisted reports whether the store has assigned an ID to the item
func (n *NewsItem) Persisted() bool {
	return n.ID != 0
}

// Sent returns the IsSent flag, treating an unset flag as false
func (n *NewsItem) Sent() bool {
	return n.IsSent != nil && *n.IsSent
}

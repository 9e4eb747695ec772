package models

// NewsDTO represents a raw record returned by the remote news source
type NewsDTO struct {
	Time     string `json:"time"`
	Keywords string `json:"keywords"`
	Text     string `json:"text"`
	IsSent   *bool  `json:"isSent,omitempty"`
}

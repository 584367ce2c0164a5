package domain

import "time"

// Video is the newest item of a content source. Only ID is persisted.
type Video struct {
	ID          string    `json:"id"`
	ChannelID   string    `json:"channel_id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// WatchURL returns the canonical watch link for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// Channel describes a content source for operators.
type Channel struct {
	ID           string
	Title        string
	Description  string
	Subscribers  *uint64
	ThumbnailURL string
}

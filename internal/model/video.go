package model

import "time"

// VideoData is a display-oriented projection of a YouTube video.
// It is derived on every fetch and never persisted.
type VideoData struct {
	VideoID         string    `json:"videoId"`
	Title           string    `json:"title"`
	ChannelID       string    `json:"channelId"`
	ChannelTitle    string    `json:"channelTitle"`
	ThumbnailURL    string    `json:"thumbnailUrl,omitempty"`
	PublishedAt     time.Time `json:"publishedAt"`
	DurationSeconds int       `json:"durationSeconds"`
	IsShort         bool      `json:"isShort"`
	Tags            []string  `json:"tags,omitempty"`
	ViewCount       int64     `json:"viewCount"`
	LikeCount       int64     `json:"likeCount"`
	CommentCount    int64     `json:"commentCount"`
	SubscriberCount int64     `json:"subscriberCount"`
	Views           string    `json:"views"`
	ViewsFull       string    `json:"viewsFull"`
	Subscribers     string    `json:"subscribers"`
	ViralScore      float64   `json:"viralScore"`
	ViralScoreText  string    `json:"viralScoreText"`
	Tier            string    `json:"tier"`
}

// FeedResponse is the API response for monitoring feeds and trend searches.
type FeedResponse struct {
	Videos      []VideoData `json:"videos"`
	Channels    int         `json:"channels"`
	QuotaUsed   int         `json:"quotaUsed"`
	GeneratedAt string      `json:"generatedAt"`
}

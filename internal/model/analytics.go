package model

import "time"

// AnalyticsSession is one visit to the dashboard.
type AnalyticsSession struct {
	ID          string    `json:"id"`
	AnonymousID string    `json:"anonymousId"`
	UserID      string    `json:"-"`
	UserAgent   string    `json:"-"`
	IPHash      string    `json:"-"`
	StartedAt   time.Time `json:"startedAt"`
}

// PageView is one page visited inside a session.
type PageView struct {
	SessionID string    `json:"sessionId"`
	Path      string    `json:"path"`
	Referrer  string    `json:"referrer,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionRequest is the API request body for starting a session.
type SessionRequest struct {
	AnonymousID string `json:"anonymousId,omitempty"`
}

// PageViewRequest is the API request body for recording a page view.
type PageViewRequest struct {
	SessionID string `json:"sessionId"`
	Path      string `json:"path"`
	Referrer  string `json:"referrer,omitempty"`
}

// PathCount is a page path and how often it was viewed.
type PathCount struct {
	Path  string `json:"path"`
	Views int    `json:"views"`
}

// AnalyticsSummary aggregates traffic over a trailing window.
type AnalyticsSummary struct {
	Days           int         `json:"days"`
	Sessions       int         `json:"sessions"`
	UniqueVisitors int         `json:"uniqueVisitors"`
	PageViews      int         `json:"pageViews"`
	TopPaths       []PathCount `json:"topPaths"`
}

// StatsResponse is the admin overview of stored entities.
type StatsResponse struct {
	TotalUsers      int `json:"totalUsers"`
	ActiveMembers   int `json:"activeMembers"`
	SavedChannels   int `json:"savedChannels"`
	Groups          int `json:"groups"`
	PendingPackages int `json:"pendingPackages"`
	OpenInquiries   int `json:"openInquiries"`
	ActiveUsers24h  int `json:"activeUsers24h"`
}

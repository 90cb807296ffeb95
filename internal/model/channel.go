package model

import "time"

// GroupID identifies a channel group. Two values are reserved and never stored.
type GroupID string

const (
	// GroupAll selects every saved channel regardless of group.
	GroupAll GroupID = "all"
	// GroupUnassigned selects channels with no group, or a group that no longer exists.
	GroupUnassigned GroupID = "unassigned"
)

// IsSentinel reports whether g is one of the reserved virtual group ids.
func (g GroupID) IsSentinel() bool {
	return g == GroupAll || g == GroupUnassigned
}

// ChannelGroup is a user-defined label for organizing tracked channels.
type ChannelGroup struct {
	ID           GroupID   `json:"id"`
	UserID       string    `json:"-"`
	Name         string    `json:"name"`
	Position     int       `json:"position"`
	ChannelCount int       `json:"channelCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ChannelStats is a cached snapshot of public channel statistics.
type ChannelStats struct {
	SubscriberCount   int64     `json:"subscriberCount"`
	ViewCount         int64     `json:"viewCount"`
	VideoCount        int64     `json:"videoCount"`
	HiddenSubscribers bool      `json:"hiddenSubscribers,omitempty"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// SavedChannel is a channel tracked by a user.
type SavedChannel struct {
	UserID            string        `json:"-"`
	ChannelID         string        `json:"channelId"`
	Title             string        `json:"title"`
	CustomURL         string        `json:"customUrl,omitempty"`
	ThumbnailURL      string        `json:"thumbnailUrl,omitempty"`
	UploadsPlaylistID string        `json:"-"`
	GroupID           *GroupID      `json:"-"`
	Stats             *ChannelStats `json:"stats,omitempty"`
	AddedAt           time.Time     `json:"addedAt"`
}

// EffectiveGroup returns the group the channel is displayed under.
func (c *SavedChannel) EffectiveGroup() GroupID {
	if c.GroupID == nil || *c.GroupID == "" {
		return GroupUnassigned
	}
	return *c.GroupID
}

// SavedChannelResponse is the API shape of a saved channel.
type SavedChannelResponse struct {
	*SavedChannel
	GroupID GroupID `json:"groupId"`
}

// ChannelInfo is the resolved public metadata of a YouTube channel.
type ChannelInfo struct {
	ChannelID         string       `json:"channelId"`
	Title             string       `json:"title"`
	CustomURL         string       `json:"customUrl,omitempty"`
	ThumbnailURL      string       `json:"thumbnailUrl,omitempty"`
	UploadsPlaylistID string       `json:"uploadsPlaylistId,omitempty"`
	Stats             ChannelStats `json:"stats"`
}

// AddChannelRequest is the API request body for adding a channel.
type AddChannelRequest struct {
	Input   string  `json:"input"`
	GroupID GroupID `json:"groupId,omitempty"`
}

// MoveChannelsRequest is the API request body for regrouping channels.
type MoveChannelsRequest struct {
	ChannelIDs []string `json:"channelIds"`
	GroupID    GroupID  `json:"groupId"`
}

// RemoveChannelsRequest is the API request body for untracking channels.
type RemoveChannelsRequest struct {
	ChannelIDs []string `json:"channelIds"`
}

// GroupRequest is the API request body for creating or renaming a group.
type GroupRequest struct {
	Name string `json:"name"`
}

// GroupOrderRequest is the API request body for reordering groups.
type GroupOrderRequest struct {
	GroupIDs []GroupID `json:"groupIds"`
}

// BundleRequest creates a group and files the given saved channels under it.
type BundleRequest struct {
	Name       string   `json:"name"`
	ChannelIDs []string `json:"channelIds"`
}

// GroupsResponse lists a user's groups plus the virtual buckets.
type GroupsResponse struct {
	Groups          []ChannelGroup `json:"groups"`
	TotalChannels   int            `json:"totalChannels"`
	UnassignedCount int            `json:"unassignedCount"`
}

package model

import "time"

// SharedUsageKey is the usage key for calls made with the server's API key.
const SharedUsageKey = "_shared"

// Operation is a billable YouTube Data API call.
type Operation string

const (
	OpChannelsList      Operation = "channels.list"
	OpPlaylistItemsList Operation = "playlistItems.list"
	OpVideosList        Operation = "videos.list"
	OpSearchList        Operation = "search.list"
)

// Cost returns the quota units YouTube charges for op.
func (op Operation) Cost() int {
	switch op {
	case OpSearchList:
		return 100
	case OpChannelsList, OpPlaylistItemsList, OpVideosList:
		return 1
	}
	return 1
}

// UsageLevel summarises how close a key is to its daily limit.
type UsageLevel string

const (
	UsageOK        UsageLevel = "ok"
	UsageWarning   UsageLevel = "warning"
	UsageExhausted UsageLevel = "exhausted"
)

// ApiUsage is the daily quota counter for one API key owner.
type ApiUsage struct {
	Key       string    `json:"key"`
	Day       string    `json:"day"` // YYYY-MM-DD in the quota timezone
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	ResetAt   time.Time `json:"resetAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Rollover resets the counter when day differs from the stored day.
// It reports whether a reset happened.
func (u *ApiUsage) Rollover(day string, resetAt time.Time) bool {
	if u.Day == day {
		return false
	}
	u.Day = day
	u.Used = 0
	u.ResetAt = resetAt
	return true
}

// Remaining returns the units left today, never negative.
func (u *ApiUsage) Remaining() int {
	return max(u.Limit-u.Used, 0)
}

// CanAfford reports whether cost more units fit under the limit.
func (u *ApiUsage) CanAfford(cost int) bool {
	return u.Used+cost <= u.Limit
}

// Level classifies usage against warnRatio of the limit.
func (u *ApiUsage) Level(warnRatio float64) UsageLevel {
	if u.Limit <= 0 || u.Used >= u.Limit {
		return UsageExhausted
	}
	if float64(u.Used) >= float64(u.Limit)*warnRatio {
		return UsageWarning
	}
	return UsageOK
}

// UsageLogEntry records one charged API call.
type UsageLogEntry struct {
	ID        int64     `json:"id"`
	Key       string    `json:"-"`
	Operation Operation `json:"operation"`
	Cost      int       `json:"cost"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// UsageSnapshot is the API view of a key's quota state.
type UsageSnapshot struct {
	Key       string     `json:"key"`
	Day       string     `json:"day"`
	Used      int        `json:"used"`
	Limit     int        `json:"limit"`
	Remaining int        `json:"remaining"`
	Level     UsageLevel `json:"level"`
	ResetAt   time.Time  `json:"resetAt"`
	OwnKey    bool       `json:"ownKey"`
}

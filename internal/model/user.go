package model

import "time"

// Role is the membership tier of a Tube Radar account.
type Role string

const (
	RoleFree   Role = "free"
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleFree, RoleMember, RoleAdmin:
		return true
	}
	return false
}

// User is an authenticated Tube Radar account.
type User struct {
	UID              string     `json:"uid"`
	Email            string     `json:"email,omitempty"`
	DisplayName      string     `json:"displayName,omitempty"`
	Role             Role       `json:"role"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
	YouTubeAPIKey    string     `json:"-"`
	ExpiryNotifiedAt *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"createdAt"`
	LastActive       time.Time  `json:"lastActive"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// MembershipActive reports whether the user may use member-only features at now.
// Admins always may; members may until ExpiresAt (a nil expiry never lapses).
func (u *User) MembershipActive(now time.Time) bool {
	switch u.Role {
	case RoleAdmin:
		return true
	case RoleMember:
		return u.ExpiresAt == nil || u.ExpiresAt.After(now)
	}
	return false
}

// HasOwnAPIKey reports whether the user stored a personal YouTube API key.
func (u *User) HasOwnAPIKey() bool {
	return u.YouTubeAPIKey != ""
}

// MaskedAPIKey returns the stored key with everything but the last 4 characters hidden.
func (u *User) MaskedAPIKey() string {
	k := u.YouTubeAPIKey
	if k == "" {
		return ""
	}
	if len(k) <= 4 {
		return "****"
	}
	return "****" + k[len(k)-4:]
}

// MeResponse is the API response for GET /api/me.
type MeResponse struct {
	User             *User          `json:"user"`
	MembershipActive bool           `json:"membershipActive"`
	APIKey           string         `json:"apiKey,omitempty"`
	Usage            *UsageSnapshot `json:"usage,omitempty"`
}

// APIKeyRequest is the API request body for storing or clearing a personal key.
type APIKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// GrantRequest is the admin request body for granting membership.
type GrantRequest struct {
	Days int `json:"days"`
}

// RoleRequest is the admin request body for setting a user's role.
type RoleRequest struct {
	Role Role `json:"role"`
}

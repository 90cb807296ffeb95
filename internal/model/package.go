package model

import "time"

// PackageStatus is the moderation state of a recommended package.
type PackageStatus string

const (
	PackagePending  PackageStatus = "pending"
	PackageApproved PackageStatus = "approved"
	PackageRejected PackageStatus = "rejected"
)

var packageTransitions = map[PackageStatus][]PackageStatus{
	PackagePending:  {PackageApproved, PackageRejected},
	PackageApproved: {PackageRejected},
	PackageRejected: {PackagePending},
}

// Valid reports whether s is a known status.
func (s PackageStatus) Valid() bool {
	_, ok := packageTransitions[s]
	return ok
}

// CanTransition reports whether moderation may move a package from s to to.
func (s PackageStatus) CanTransition(to PackageStatus) bool {
	for _, next := range packageTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Editable reports whether the submitter may still change the package.
func (s PackageStatus) Editable() bool {
	return s == PackagePending || s == PackageRejected
}

// PackageKind distinguishes channel bundles from topic collections.
type PackageKind string

const (
	KindPackage PackageKind = "package"
	KindTopic   PackageKind = "topic"
)

// Valid reports whether k is a known kind.
func (k PackageKind) Valid() bool {
	return k == KindPackage || k == KindTopic
}

// PackageChannel is one channel entry inside a package.
type PackageChannel struct {
	ChannelID    string `json:"channelId" yaml:"channel_id"`
	Title        string `json:"title" yaml:"title"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty" yaml:"thumbnail_url"`
}

// RecommendedPackage is a curated or user-submitted bundle of channels.
type RecommendedPackage struct {
	ID          string           `json:"id"`
	Kind        PackageKind      `json:"kind"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Category    string           `json:"category,omitempty"`
	Channels    []PackageChannel `json:"channels"`
	Status      PackageStatus    `json:"status"`
	SubmittedBy string           `json:"submittedBy,omitempty"`
	ReviewedBy  string           `json:"reviewedBy,omitempty"`
	ReviewNote  string           `json:"reviewNote,omitempty"`
	Curated     bool             `json:"curated"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	ReviewedAt  *time.Time       `json:"reviewedAt,omitempty"`
}

// PackageRequest is the API request body for submitting or editing a package.
type PackageRequest struct {
	Kind        PackageKind      `json:"kind"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Channels    []PackageChannel `json:"channels"`
}

// ReviewRequest is the API request body for moderating a package.
type ReviewRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

// ImportRequest is the API request body for copying a package into the library.
// Exactly one of GroupID and NewGroupName should be set; neither files channels as unassigned.
type ImportRequest struct {
	GroupID      GroupID `json:"groupId,omitempty"`
	NewGroupName string  `json:"newGroupName,omitempty"`
}

// ImportResponse reports the outcome of a package import.
type ImportResponse struct {
	GroupID  GroupID `json:"groupId"`
	Imported int     `json:"imported"`
}

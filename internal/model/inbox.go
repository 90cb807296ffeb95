package model

import "time"

// NotificationKind categorises a notification for display.
type NotificationKind string

const (
	NotifySystem     NotificationKind = "system"
	NotifyPackage    NotificationKind = "package"
	NotifyInquiry    NotificationKind = "inquiry"
	NotifyMembership NotificationKind = "membership"
)

// Notification is a per-user message with a read flag.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"-"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Link      string           `json:"link,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

// BroadcastRequest is the admin request body for a mass notification.
// An empty Role targets every user.
type BroadcastRequest struct {
	Role    Role   `json:"role,omitempty"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
}

// InquiryStatus tracks a support inquiry.
type InquiryStatus string

const (
	InquiryOpen     InquiryStatus = "open"
	InquiryAnswered InquiryStatus = "answered"
	InquiryClosed   InquiryStatus = "closed"
)

// Inquiry is a support message from a user to the administrators.
type Inquiry struct {
	ID         string        `json:"id"`
	UserID     string        `json:"userId"`
	Subject    string        `json:"subject"`
	Body       string        `json:"body"`
	Status     InquiryStatus `json:"status"`
	Answer     string        `json:"answer,omitempty"`
	AnsweredAt *time.Time    `json:"answeredAt,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// InquiryRequest is the API request body for a new inquiry.
type InquiryRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// AnswerRequest is the admin request body for answering an inquiry.
type AnswerRequest struct {
	Answer string `json:"answer"`
}

// Notice is the single system-wide announcement.
type Notice struct {
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"-"`
}

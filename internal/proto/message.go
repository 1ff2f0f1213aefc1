package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for commands coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Inbound command types.
const (
	InboundTypeSendMessage       = "send_message"
	InboundTypeGetConversations  = "get_conversations"
	InboundTypeGetRecentMessages = "get_recent_messages"
	InboundTypeAcceptJobOffer    = "accept_job_offer"
	InboundTypeMarkJobCompleted  = "mark_job_completed"
	InboundTypeLeaveReview       = "leave_review"
	InboundTypeProviderStats     = "get_service_provider_stats"
)

// Outbound envelope types.
const (
	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// Reply event names (direct responses to a command).
const (
	EventConversations  = "conversations"
	EventRecentMessages = "recent_messages"
	EventProviderStats  = "service_provider_stats"
)

// SendMessageData is the send_message payload. Sender, when present,
// must match the connection's authenticated identity.
type SendMessageData struct {
	Sender          string `json:"sender,omitempty"`
	Recipient       string `json:"recipient"`
	Content         string `json:"content"`
	Kind            string `json:"kind,omitempty"`
	CategoryID      string `json:"category_id,omitempty"`
	NewConversation bool   `json:"new_conversation,omitempty"`
}

// GetConversationsData is the get_conversations payload.
type GetConversationsData struct {
	UserID string `json:"user_id,omitempty"`
	Page   int    `json:"page,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// GetRecentMessagesData is the get_recent_messages payload.
type GetRecentMessagesData struct {
	ConversationID string `json:"conversation_id"`
	Page           int    `json:"page,omitempty"`
}

// JobActionData is the accept_job_offer / mark_job_completed payload.
type JobActionData struct {
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id,omitempty"`
}

// LeaveReviewData is the leave_review payload.
type LeaveReviewData struct {
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id,omitempty"`
	Stars     int    `json:"stars"`
	Comment   string `json:"comment"`
}

// ProviderStatsData is the get_service_provider_stats payload.
type ProviderStatsData struct {
	UserID string `json:"user_id,omitempty"`
}

// Outbound is the envelope for everything the server sends.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Error describes a failed command.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ConversationItem is one conversation in a conversations reply.
type ConversationItem struct {
	ID               string    `json:"id"`
	OtherParticipant string    `json:"other_participant"`
	LastMessage      string    `json:"last_message"`
	LastMessageTime  time.Time `json:"last_message_time"`
}

// ConversationsData is the conversations reply payload.
type ConversationsData struct {
	Conversations []ConversationItem `json:"conversations"`
	Message       string             `json:"message,omitempty"`
	Page          int                `json:"page"`
	TotalPages    int                `json:"total_pages"`
}

// CategoryDetails names a job offer's service category.
type CategoryDetails struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ReviewDetails carries a review inline.
type ReviewDetails struct {
	Stars   int    `json:"stars"`
	Comment string `json:"comment"`
}

// MessageItem is one message in a recent_messages reply.
type MessageItem struct {
	ID              string           `json:"id"`
	ConversationID  string           `json:"conversation_id"`
	Sender          string           `json:"sender"`
	Recipient       string           `json:"recipient"`
	Content         string           `json:"content"`
	Kind            string           `json:"kind"`
	CategoryID      string           `json:"category_id,omitempty"`
	OfferStatus     string           `json:"offer_status,omitempty"`
	ReviewID        string           `json:"review_id,omitempty"`
	CategoryDetails *CategoryDetails `json:"category_details,omitempty"`
	ReviewDetails   *ReviewDetails   `json:"review_details,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// RecentMessagesData is the recent_messages reply payload.
type RecentMessagesData struct {
	Messages     []MessageItem     `json:"messages"`
	Conversation *ConversationItem `json:"conversation,omitempty"`
	Page         int               `json:"page"`
	TotalPages   int               `json:"total_pages"`
}

// JobSummary is one entry in the provider stats recent lists.
type JobSummary struct {
	MessageID     string         `json:"message_id"`
	CategoryName  string         `json:"category_name,omitempty"`
	Sender        string         `json:"sender"`
	Content       string         `json:"content"`
	Date          time.Time      `json:"date"`
	Status        string         `json:"status"`
	ReviewDetails *ReviewDetails `json:"review_details,omitempty"`
}

// ProviderStatsReply is the service_provider_stats reply payload.
type ProviderStatsReply struct {
	CompletedJobs   int          `json:"completed_jobs"`
	PendingJobs     int          `json:"pending_jobs"`
	AcceptedJobs    int          `json:"accepted_jobs"`
	TotalJobs       int          `json:"total_jobs"`
	RecentCompleted []JobSummary `json:"recent_completed_jobs"`
	RecentPending   []JobSummary `json:"recent_pending_jobs"`
	RecentAccepted  []JobSummary `json:"recent_accepted_jobs"`
}

package core

import "time"

// Bus channel names. Every process subscribes to all three at startup.
const (
	ChannelChat       = "chat"
	ChannelChatUpdate = "chat_update"
	ChannelJobStatus  = "job_status_update"
)

// Broadcast event names as delivered to clients.
const (
	EventReceiveMessage  = "receive_message"
	EventChatUpdate      = "chat_update"
	EventJobStatusUpdate = "job_status_update"
)

// Event is a named payload queued for a client's write loop. Err is set
// instead of Name/Data for command failures.
type Event struct {
	Name string
	Data any
	Err  *Error
}

// ErrorEvent wraps a domain error for delivery to the caller.
func ErrorEvent(err *Error) *Event {
	return &Event{Err: err}
}

// CategoryDetails names the service category of a job offer.
type CategoryDetails struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ReviewDetails carries a review inline on update events.
type ReviewDetails struct {
	Stars   int    `json:"stars"`
	Comment string `json:"comment"`
}

// MessageEvent is broadcast on the chat channel for each new message.
// ID is empty for transient events that were never persisted.
type MessageEvent struct {
	ID              string           `json:"id,omitempty"`
	ConversationID  string           `json:"conversation_id"`
	Sender          string           `json:"sender"`
	Recipient       string           `json:"recipient"`
	Content         string           `json:"content"`
	Kind            string           `json:"kind"`
	CategoryID      string           `json:"category_id,omitempty"`
	OfferStatus     string           `json:"offer_status,omitempty"`
	CategoryDetails *CategoryDetails `json:"category_details,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// ChatUpdateEvent is broadcast on the chat_update channel when a
// persisted message changes state (offer transitions, review attached).
type ChatUpdateEvent struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Sender         string         `json:"sender"`
	Recipient      string         `json:"recipient"`
	Content        string         `json:"content"`
	Kind           string         `json:"kind"`
	CategoryID     string         `json:"category_id,omitempty"`
	OfferStatus    string         `json:"offer_status,omitempty"`
	ReviewID       string         `json:"review_id,omitempty"`
	ReviewDetails  *ReviewDetails `json:"review_details,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// JobStatusEvent is broadcast on the job_status_update channel so both
// parties' dashboards can refresh aggregate counters. It deliberately
// carries no message body.
type JobStatusEvent struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
}

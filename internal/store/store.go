package store

import (
	"context"
	"time"
)

// MessageKind distinguishes plain chat from job-offer messages.
type MessageKind string

const (
	MessageKindText     MessageKind = "text"
	MessageKindJobOffer MessageKind = "job_offer"
)

// OfferStatus is the workflow state of a job-offer message.
type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "pending"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusCompleted OfferStatus = "completed"
)

// Conversation is a thread between exactly two users. The participant
// pair is stored in sorted order so lookup is unordered-pair equality.
type Conversation struct {
	ID              string
	ParticipantA    string // lexicographically smaller of the pair
	ParticipantB    string
	LastMessage     string
	LastMessageTime time.Time
	CreatedAt       time.Time
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// OtherParticipant returns the participant that is not userID.
func (c *Conversation) OtherParticipant(userID string) string {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// NormalizePair returns the two ids in storage order.
func NormalizePair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// Message is immutable once created except for the workflow fields
// OfferStatus and ReviewID. CategoryID and OfferStatus are set if and
// only if Kind is MessageKindJobOffer.
type Message struct {
	ID             string
	ConversationID string
	Sender         string
	Recipient      string
	Content        string
	Kind           MessageKind
	CategoryID     string
	OfferStatus    OfferStatus
	ReviewID       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Review attaches to exactly one completed job-offer message.
type Review struct {
	ID        string
	MessageID string
	Receiver  string // the service provider being reviewed
	Stars     int
	Comment   string
	CreatedAt time.Time
}

// Category is a service category referenced by job offers.
type Category struct {
	ID   string
	Name string
}

// ConversationStore handles conversation persistence. Absent records
// are (nil, nil), not an error.
type ConversationStore interface {
	// CreateConversation persists a new conversation.
	CreateConversation(ctx context.Context, convo *Conversation) error

	// GetConversationByID retrieves a conversation by id.
	GetConversationByID(ctx context.Context, id string) (*Conversation, error)

	// FindConversationByParticipants looks up the conversation for an
	// unordered participant pair.
	FindConversationByParticipants(ctx context.Context, userA, userB string) (*Conversation, error)

	// UpdateConversationSummary sets the denormalized last-message fields.
	UpdateConversationSummary(ctx context.Context, id, lastMessage string, at time.Time) error

	// ListConversations returns a user's conversations ordered by most
	// recent message time descending.
	ListConversations(ctx context.Context, userID string, limit, offset int) ([]*Conversation, error)

	// CountConversations counts a user's conversations.
	CountConversations(ctx context.Context, userID string) (int, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// CreateMessage persists a message.
	CreateMessage(ctx context.Context, msg *Message) error

	// GetMessageByID retrieves a message by id.
	GetMessageByID(ctx context.Context, id string) (*Message, error)

	// ListMessages returns a conversation's messages newest first.
	ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]*Message, error)

	// CountMessages counts messages in a conversation.
	CountMessages(ctx context.Context, conversationID string) (int, error)

	// UpdateOfferStatus transitions a job offer from one status to
	// another. Compare-and-set: returns false without modifying anything
	// when the stored status no longer equals from, which serializes
	// racing transitions on the same message.
	UpdateOfferStatus(ctx context.Context, id string, from, to OfferStatus) (bool, error)

	// AttachReview sets the message's review id if none is set yet.
	// Returns false when a review is already attached.
	AttachReview(ctx context.Context, messageID, reviewID string, at time.Time) (bool, error)

	// CountJobOffers counts job offers addressed to recipient in the
	// given status.
	CountJobOffers(ctx context.Context, recipient string, status OfferStatus) (int, error)

	// ListJobOffers returns the newest job offers addressed to recipient
	// in the given status.
	ListJobOffers(ctx context.Context, recipient string, status OfferStatus, limit int) ([]*Message, error)
}

// ReviewStore handles review persistence.
type ReviewStore interface {
	// CreateReview persists a review.
	CreateReview(ctx context.Context, rev *Review) error

	// GetReviewByID retrieves a review by id.
	GetReviewByID(ctx context.Context, id string) (*Review, error)
}

// CategoryStore handles category lookups.
type CategoryStore interface {
	// GetCategoryByID retrieves a category by id.
	GetCategoryByID(ctx context.Context, id string) (*Category, error)

	// CreateCategory persists a category.
	CreateCategory(ctx context.Context, cat *Category) error
}

// Store aggregates all storage interfaces.
type Store interface {
	ConversationStore
	MessageStore
	ReviewStore
	CategoryStore

	// Close closes the underlying database connection.
	Close() error
}

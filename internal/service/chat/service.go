package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/craftlink/chat-server/internal/core"
	"github.com/craftlink/chat-server/internal/store"
)

const (
	// DefaultConversationLimit is the conversations page size.
	DefaultConversationLimit = 12
	// RecentMessagesLimit is the fixed message page size.
	RecentMessagesLimit = 15
)

// Service implements message send and history queries. Persistence
// always happens before publish: the store is the source of truth and
// bus delivery is best-effort.
type Service struct {
	store  store.Store
	bridge *core.Bridge
	log    *zerolog.Logger
}

// NewService creates a chat service.
func NewService(st store.Store, bridge *core.Bridge, logger *zerolog.Logger) *Service {
	return &Service{store: st, bridge: bridge, log: logger}
}

// SendInput is a send_message command. Sender comes from the gateway
// identity, never from the payload.
type SendInput struct {
	Recipient       string
	Content         string
	Kind            store.MessageKind
	CategoryID      string
	NewConversation bool
}

// Send resolves or creates the conversation, persists the message, and
// publishes it. When the caller claims a new conversation but the pair
// already has one, nothing is persisted and a transient text event is
// published instead (anti-duplicate guard); the returned message is nil
// in that case.
func (s *Service) Send(ctx context.Context, sender string, in SendInput) (*store.Message, error) {
	if sender == "" || in.Recipient == "" || in.Content == "" {
		return nil, core.InvalidInput("sender, recipient and content are required")
	}
	kind := in.Kind
	if kind == "" {
		kind = store.MessageKindText
	}
	if kind != store.MessageKindText && kind != store.MessageKindJobOffer {
		return nil, core.InvalidInput("unknown message kind")
	}
	if kind == store.MessageKindJobOffer && in.CategoryID == "" {
		return nil, core.InvalidInput("category id is required for job offers")
	}

	convo, err := s.store.FindConversationByParticipants(ctx, sender, in.Recipient)
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}

	if in.NewConversation && convo != nil {
		// The pair already talks; publish without persisting so a stale
		// "first contact" send cannot duplicate the opening message.
		s.publishMessage(ctx, core.MessageEvent{
			ConversationID: convo.ID,
			Sender:         sender,
			Recipient:      in.Recipient,
			Content:        in.Content,
			Kind:           string(store.MessageKindText),
			CreatedAt:      time.Now().UTC(),
		})
		return nil, nil
	}

	now := time.Now().UTC()
	if convo == nil {
		convo = &store.Conversation{
			ID:              uuid.NewString(),
			ParticipantA:    sender,
			ParticipantB:    in.Recipient,
			LastMessage:     in.Content,
			LastMessageTime: now,
			CreatedAt:       now,
		}
		if err := s.store.CreateConversation(ctx, convo); err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
	}

	msg := &store.Message{
		ID:             uuid.NewString(),
		ConversationID: convo.ID,
		Sender:         sender,
		Recipient:      in.Recipient,
		Content:        in.Content,
		Kind:           kind,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if kind == store.MessageKindJobOffer {
		msg.CategoryID = in.CategoryID
		msg.OfferStatus = store.OfferStatusPending
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	if err := s.store.UpdateConversationSummary(ctx, convo.ID, in.Content, now); err != nil {
		return nil, fmt.Errorf("update conversation summary: %w", err)
	}

	s.publishMessage(ctx, MessageEventFrom(msg))
	return msg, nil
}

// MessageEventFrom maps a persisted message to its broadcast form.
func MessageEventFrom(msg *store.Message) core.MessageEvent {
	return core.MessageEvent{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Sender:         msg.Sender,
		Recipient:      msg.Recipient,
		Content:        msg.Content,
		Kind:           string(msg.Kind),
		CategoryID:     msg.CategoryID,
		OfferStatus:    string(msg.OfferStatus),
		CreatedAt:      msg.CreatedAt,
	}
}

func (s *Service) publishMessage(ctx context.Context, ev core.MessageEvent) {
	if err := s.bridge.PublishMessage(ctx, ev); err != nil {
		// Persistence already happened; delivery is best-effort.
		s.log.Warn().Err(err).Str("message_id", ev.ID).Msg("bus publish failed")
	}
}

// ConversationSummary is one row of a conversations page.
type ConversationSummary struct {
	ID               string
	OtherParticipant string
	LastMessage      string
	LastMessageTime  time.Time
}

// ConversationPage is a page of a user's conversations.
type ConversationPage struct {
	Conversations []ConversationSummary
	Page          int
	TotalPages    int
}

// Conversations lists a user's conversations, most recent message time
// first. page starts at 1; limit defaults to DefaultConversationLimit.
func (s *Service) Conversations(ctx context.Context, userID string, page, limit int) (*ConversationPage, error) {
	if userID == "" {
		return nil, core.InvalidInput("user id is required")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultConversationLimit
	}
	offset := (page - 1) * limit

	convos, err := s.store.ListConversations(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	total, err := s.store.CountConversations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count conversations: %w", err)
	}

	result := &ConversationPage{
		Conversations: make([]ConversationSummary, 0, len(convos)),
		Page:          page,
		TotalPages:    totalPages(total, limit),
	}
	for _, convo := range convos {
		result.Conversations = append(result.Conversations, ConversationSummary{
			ID:               convo.ID,
			OtherParticipant: convo.OtherParticipant(userID),
			LastMessage:      convo.LastMessage,
			LastMessageTime:  convo.LastMessageTime,
		})
	}
	return result, nil
}

// MessageView is a message with delivery-side enrichment.
type MessageView struct {
	Message         *store.Message
	CategoryDetails *core.CategoryDetails
	ReviewDetails   *core.ReviewDetails
}

// MessagePage is a page of a conversation's messages, newest first.
type MessagePage struct {
	Messages     []MessageView
	Conversation *store.Conversation
	Page         int
	TotalPages   int
}

// RecentMessages lists a conversation page for one of its participants.
// Job offers carry category details; completed reviewed offers carry
// the review inline.
func (s *Service) RecentMessages(ctx context.Context, userID, conversationID string, page int) (*MessagePage, error) {
	if conversationID == "" {
		return nil, core.InvalidInput("conversation id is required")
	}
	if page < 1 {
		page = 1
	}

	convo, err := s.store.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if convo == nil {
		return nil, core.NotFound("conversation not found")
	}
	if !convo.HasParticipant(userID) {
		return nil, core.Unauthorized("not a participant of this conversation")
	}

	offset := (page - 1) * RecentMessagesLimit
	msgs, err := s.store.ListMessages(ctx, conversationID, RecentMessagesLimit, offset)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	total, err := s.store.CountMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}

	result := &MessagePage{
		Messages:     make([]MessageView, 0, len(msgs)),
		Conversation: convo,
		Page:         page,
		TotalPages:   totalPages(total, RecentMessagesLimit),
	}
	for _, msg := range msgs {
		view := MessageView{Message: msg}
		if msg.Kind == store.MessageKindJobOffer {
			view.CategoryDetails = s.categoryDetails(ctx, msg.CategoryID)
			if msg.OfferStatus == store.OfferStatusCompleted && msg.ReviewID != "" {
				view.ReviewDetails = s.reviewDetails(ctx, msg.ReviewID)
			}
		}
		result.Messages = append(result.Messages, view)
	}
	return result, nil
}

func (s *Service) categoryDetails(ctx context.Context, categoryID string) *core.CategoryDetails {
	if categoryID == "" {
		return nil
	}
	cat, err := s.store.GetCategoryByID(ctx, categoryID)
	if err != nil {
		s.log.Warn().Err(err).Str("category_id", categoryID).Msg("category lookup failed")
		return nil
	}
	if cat == nil {
		return nil
	}
	return &core.CategoryDetails{ID: cat.ID, Name: cat.Name}
}

func (s *Service) reviewDetails(ctx context.Context, reviewID string) *core.ReviewDetails {
	rev, err := s.store.GetReviewByID(ctx, reviewID)
	if err != nil {
		s.log.Warn().Err(err).Str("review_id", reviewID).Msg("review lookup failed")
		return nil
	}
	if rev == nil {
		return nil
	}
	return &core.ReviewDetails{Stars: rev.Stars, Comment: rev.Comment}
}

func totalPages(total, limit int) int {
	return (total + limit - 1) / limit
}

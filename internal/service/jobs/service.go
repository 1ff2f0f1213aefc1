package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/craftlink/chat-server/internal/core"
	"github.com/craftlink/chat-server/internal/store"
)

// Auto-generated message bodies for workflow transitions.
const (
	acceptedMessage  = "Auto Message: Job accepted"
	completedMessage = "Auto Message: Job is completed/delivered"
)

// recentJobsLimit caps the per-status lists in provider stats.
const recentJobsLimit = 5

// Service is the job-offer workflow engine: a state machine over a
// message's offer status (pending -> accepted -> completed, review
// attaching once post-completion). Every transition is all-or-nothing:
// validate, authorize, compare-and-set in the store, then publish.
// Racing transitions on one message are serialized by the store CAS;
// the loser gets an invalid-state error.
type Service struct {
	store  store.Store
	bridge *core.Bridge
	log    *zerolog.Logger
}

// NewService creates a job workflow service.
func NewService(st store.Store, bridge *core.Bridge, logger *zerolog.Logger) *Service {
	return &Service{store: st, bridge: bridge, log: logger}
}

// Accept transitions a pending offer to accepted. Only the offer's
// recipient may accept. A confirmation text message is synthesized from
// the recipient back to the original sender.
func (s *Service) Accept(ctx context.Context, messageID, userID string) (*store.Message, error) {
	msg, err := s.transition(ctx, messageID, userID, store.OfferStatusPending, store.OfferStatusAccepted)
	if err != nil {
		return nil, err
	}

	s.publishUpdate(ctx, msg, nil)
	s.sendAutoMessage(ctx, msg, acceptedMessage)
	return msg, nil
}

// Complete transitions an accepted offer to completed. Only the offer's
// recipient may complete. Both parties additionally get an aggregate
// job-status event for their dashboards.
func (s *Service) Complete(ctx context.Context, messageID, userID string) (*store.Message, error) {
	msg, err := s.transition(ctx, messageID, userID, store.OfferStatusAccepted, store.OfferStatusCompleted)
	if err != nil {
		return nil, err
	}

	s.publishUpdate(ctx, msg, nil)

	if err := s.bridge.PublishJobStatus(ctx, core.JobStatusEvent{
		Sender:    msg.Sender,
		Recipient: msg.Recipient,
	}); err != nil {
		s.log.Warn().Err(err).Str("message_id", msg.ID).Msg("bus publish failed")
	}

	s.sendAutoMessage(ctx, msg, completedMessage)
	return msg, nil
}

// transition runs the shared validate/authorize/CAS steps of Accept and
// Complete and returns the message with the new status applied.
func (s *Service) transition(ctx context.Context, messageID, userID string, from, to store.OfferStatus) (*store.Message, error) {
	if messageID == "" || userID == "" {
		return nil, core.InvalidInput("message id and user id are required")
	}

	msg, err := s.store.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if msg == nil {
		return nil, core.NotFound("message not found")
	}
	if msg.Kind != store.MessageKindJobOffer {
		return nil, core.InvalidState("not a job offer message")
	}
	if msg.Recipient != userID {
		return nil, core.Unauthorized("only the offer recipient may perform this action")
	}

	ok, err := s.store.UpdateOfferStatus(ctx, msg.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("update offer status: %w", err)
	}
	if !ok {
		return nil, core.InvalidState(fmt.Sprintf("offer is not %s", from))
	}

	msg.OfferStatus = to
	msg.UpdatedAt = time.Now().UTC()
	return msg, nil
}

// Review attaches a review to a completed offer. Only the offer's
// sender (the client who posted the job) may review, exactly once.
func (s *Service) Review(ctx context.Context, messageID, userID string, stars int, comment string) (*store.Review, error) {
	if messageID == "" || userID == "" {
		return nil, core.InvalidInput("message id and user id are required")
	}
	if stars < 1 || stars > 5 {
		return nil, core.InvalidInput("stars must be between 1 and 5")
	}
	if comment == "" {
		return nil, core.InvalidInput("comment is required")
	}

	msg, err := s.store.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if msg == nil {
		return nil, core.NotFound("message not found")
	}
	if msg.Sender != userID {
		return nil, core.Unauthorized("only the job sender can leave a review")
	}
	if msg.Kind != store.MessageKindJobOffer || msg.OfferStatus != store.OfferStatusCompleted {
		return nil, core.InvalidState("reviews can only be left on completed jobs")
	}
	if msg.ReviewID != "" {
		return nil, core.InvalidState("a review has already been left for this job")
	}

	// Claim the review slot first: the CAS on review_id decides the
	// winner between racing reviews, then the review row is written.
	now := time.Now().UTC()
	reviewID := uuid.NewString()
	ok, err := s.store.AttachReview(ctx, msg.ID, reviewID, now)
	if err != nil {
		return nil, fmt.Errorf("attach review: %w", err)
	}
	if !ok {
		return nil, core.InvalidState("a review has already been left for this job")
	}

	rev := &store.Review{
		ID:        reviewID,
		MessageID: msg.ID,
		Receiver:  msg.Recipient,
		Stars:     stars,
		Comment:   comment,
		CreatedAt: now,
	}
	if err := s.store.CreateReview(ctx, rev); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	msg.ReviewID = reviewID
	msg.UpdatedAt = now
	s.publishUpdate(ctx, msg, &core.ReviewDetails{Stars: stars, Comment: comment})
	return rev, nil
}

// JobSummary is one entry in the provider's recent-job lists.
type JobSummary struct {
	MessageID     string
	CategoryName  string
	Sender        string
	Content       string
	Date          time.Time
	Status        store.OfferStatus
	ReviewDetails *core.ReviewDetails
}

// ProviderStats aggregates a service provider's job offers.
type ProviderStats struct {
	CompletedJobs   int
	PendingJobs     int
	AcceptedJobs    int
	TotalJobs       int
	RecentCompleted []JobSummary
	RecentPending   []JobSummary
	RecentAccepted  []JobSummary
}

// Stats returns per-status counts and the newest jobs per status for
// the provider's dashboard.
func (s *Service) Stats(ctx context.Context, userID string) (*ProviderStats, error) {
	if userID == "" {
		return nil, core.InvalidInput("user id is required")
	}

	stats := &ProviderStats{}
	var err error
	if stats.PendingJobs, err = s.store.CountJobOffers(ctx, userID, store.OfferStatusPending); err != nil {
		return nil, fmt.Errorf("count pending: %w", err)
	}
	if stats.AcceptedJobs, err = s.store.CountJobOffers(ctx, userID, store.OfferStatusAccepted); err != nil {
		return nil, fmt.Errorf("count accepted: %w", err)
	}
	if stats.CompletedJobs, err = s.store.CountJobOffers(ctx, userID, store.OfferStatusCompleted); err != nil {
		return nil, fmt.Errorf("count completed: %w", err)
	}
	stats.TotalJobs = stats.PendingJobs + stats.AcceptedJobs + stats.CompletedJobs

	if stats.RecentPending, err = s.recentJobs(ctx, userID, store.OfferStatusPending); err != nil {
		return nil, err
	}
	if stats.RecentAccepted, err = s.recentJobs(ctx, userID, store.OfferStatusAccepted); err != nil {
		return nil, err
	}
	if stats.RecentCompleted, err = s.recentJobs(ctx, userID, store.OfferStatusCompleted); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Service) recentJobs(ctx context.Context, userID string, status store.OfferStatus) ([]JobSummary, error) {
	msgs, err := s.store.ListJobOffers(ctx, userID, status, recentJobsLimit)
	if err != nil {
		return nil, fmt.Errorf("list %s jobs: %w", status, err)
	}

	jobs := make([]JobSummary, 0, len(msgs))
	for _, msg := range msgs {
		job := JobSummary{
			MessageID:    msg.ID,
			CategoryName: s.categoryName(ctx, msg.CategoryID),
			Sender:       msg.Sender,
			Content:      msg.Content,
			Date:         msg.CreatedAt,
			Status:       status,
		}
		if status == store.OfferStatusCompleted && msg.ReviewID != "" {
			if rev, err := s.store.GetReviewByID(ctx, msg.ReviewID); err == nil && rev != nil {
				job.ReviewDetails = &core.ReviewDetails{Stars: rev.Stars, Comment: rev.Comment}
			}
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *Service) categoryName(ctx context.Context, categoryID string) string {
	if categoryID == "" {
		return ""
	}
	cat, err := s.store.GetCategoryByID(ctx, categoryID)
	if err != nil || cat == nil {
		return ""
	}
	return cat.Name
}

// sendAutoMessage persists and publishes the synthesized confirmation
// text sent from the offer recipient back to the original sender.
func (s *Service) sendAutoMessage(ctx context.Context, offer *store.Message, content string) {
	now := time.Now().UTC()
	msg := &store.Message{
		ID:             uuid.NewString(),
		ConversationID: offer.ConversationID,
		Sender:         offer.Recipient,
		Recipient:      offer.Sender,
		Content:        content,
		Kind:           store.MessageKindText,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("offer_id", offer.ID).Msg("persist auto message failed")
		return
	}

	if err := s.bridge.PublishMessage(ctx, core.MessageEvent{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Sender:         msg.Sender,
		Recipient:      msg.Recipient,
		Content:        msg.Content,
		Kind:           string(msg.Kind),
		CreatedAt:      msg.CreatedAt,
	}); err != nil {
		s.log.Warn().Err(err).Str("message_id", msg.ID).Msg("bus publish failed")
	}
}

func (s *Service) publishUpdate(ctx context.Context, msg *store.Message, review *core.ReviewDetails) {
	ev := core.ChatUpdateEvent{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Sender:         msg.Sender,
		Recipient:      msg.Recipient,
		Content:        msg.Content,
		Kind:           string(msg.Kind),
		CategoryID:     msg.CategoryID,
		OfferStatus:    string(msg.OfferStatus),
		ReviewID:       msg.ReviewID,
		ReviewDetails:  review,
		UpdatedAt:      msg.UpdatedAt,
	}
	if err := s.bridge.PublishChatUpdate(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("message_id", msg.ID).Msg("bus publish failed")
	}
}

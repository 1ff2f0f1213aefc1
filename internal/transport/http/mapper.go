package http

import (
	"github.com/craftlink/chat-server/internal/core"
	"github.com/craftlink/chat-server/internal/proto"
	"github.com/craftlink/chat-server/internal/service/chat"
	"github.com/craftlink/chat-server/internal/service/jobs"
)

func outboundFromEvent(ev *core.Event) proto.Outbound {
	if ev.Err != nil {
		return proto.Outbound{
			Type: proto.OutboundTypeError,
			Error: &proto.Error{
				Code:    ev.Err.Code,
				Message: ev.Err.Message,
			},
		}
	}
	return proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: ev.Name,
		Data:  ev.Data,
	}
}

func conversationsData(page *chat.ConversationPage) proto.ConversationsData {
	data := proto.ConversationsData{
		Conversations: make([]proto.ConversationItem, 0, len(page.Conversations)),
		Page:          page.Page,
		TotalPages:    page.TotalPages,
	}
	for _, convo := range page.Conversations {
		data.Conversations = append(data.Conversations, proto.ConversationItem{
			ID:               convo.ID,
			OtherParticipant: convo.OtherParticipant,
			LastMessage:      convo.LastMessage,
			LastMessageTime:  convo.LastMessageTime,
		})
	}
	if len(data.Conversations) == 0 {
		data.Message = "No conversations found"
	}
	return data
}

func recentMessagesData(page *chat.MessagePage, userID string) proto.RecentMessagesData {
	data := proto.RecentMessagesData{
		Messages:   make([]proto.MessageItem, 0, len(page.Messages)),
		Page:       page.Page,
		TotalPages: page.TotalPages,
	}
	if convo := page.Conversation; convo != nil {
		data.Conversation = &proto.ConversationItem{
			ID:               convo.ID,
			OtherParticipant: convo.OtherParticipant(userID),
			LastMessage:      convo.LastMessage,
			LastMessageTime:  convo.LastMessageTime,
		}
	}
	for _, view := range page.Messages {
		msg := view.Message
		item := proto.MessageItem{
			ID:             msg.ID,
			ConversationID: msg.ConversationID,
			Sender:         msg.Sender,
			Recipient:      msg.Recipient,
			Content:        msg.Content,
			Kind:           string(msg.Kind),
			CategoryID:     msg.CategoryID,
			OfferStatus:    string(msg.OfferStatus),
			ReviewID:       msg.ReviewID,
			CreatedAt:      msg.CreatedAt,
		}
		if view.CategoryDetails != nil {
			item.CategoryDetails = &proto.CategoryDetails{
				ID:   view.CategoryDetails.ID,
				Name: view.CategoryDetails.Name,
			}
		}
		if view.ReviewDetails != nil {
			item.ReviewDetails = &proto.ReviewDetails{
				Stars:   view.ReviewDetails.Stars,
				Comment: view.ReviewDetails.Comment,
			}
		}
		data.Messages = append(data.Messages, item)
	}
	return data
}

func providerStatsReply(stats *jobs.ProviderStats) proto.ProviderStatsReply {
	return proto.ProviderStatsReply{
		CompletedJobs:   stats.CompletedJobs,
		PendingJobs:     stats.PendingJobs,
		AcceptedJobs:    stats.AcceptedJobs,
		TotalJobs:       stats.TotalJobs,
		RecentCompleted: jobSummaries(stats.RecentCompleted),
		RecentPending:   jobSummaries(stats.RecentPending),
		RecentAccepted:  jobSummaries(stats.RecentAccepted),
	}
}

func jobSummaries(summaries []jobs.JobSummary) []proto.JobSummary {
	items := make([]proto.JobSummary, 0, len(summaries))
	for _, job := range summaries {
		item := proto.JobSummary{
			MessageID:    job.MessageID,
			CategoryName: job.CategoryName,
			Sender:       job.Sender,
			Content:      job.Content,
			Date:         job.Date,
			Status:       string(job.Status),
		}
		if job.ReviewDetails != nil {
			item.ReviewDetails = &proto.ReviewDetails{
				Stars:   job.ReviewDetails.Stars,
				Comment: job.ReviewDetails.Comment,
			}
		}
		items = append(items, item)
	}
	return items
}

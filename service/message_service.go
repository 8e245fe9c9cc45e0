package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Josef-miguel/tripchat-sdk/cons"
	"github.com/Josef-miguel/tripchat-sdk/models"
	"github.com/Josef-miguel/tripchat-sdk/realtime"
	"github.com/Josef-miguel/tripchat-sdk/repository"
	"github.com/google/uuid"
)

// MessageService 消息读写：追加、编辑、删除、订阅。
// 追加 + 元数据刷新不在一个事务里：部分失败（消息进了，元数据没刷）
// 可容忍，下一次发送会把元数据自愈。
type MessageService struct {
	*Service
	msgDAO  *models.MessageDAO
	convDAO *repository.ConversationDAO
}

func NewMessageService(s *Service) *MessageService {
	return &MessageService{
		Service: s,
		msgDAO:  models.NewMessageDAO(s.DB),
		convDAO: repository.NewConversationDAO(s.DB),
	}
}

// SendMessage 发消息：追加 Message，再刷新会话的 last_message/updated_at。
// 元数据刷新失败会用同样的 merge 写重试一次，仍失败才报 ErrSendFailed
// （消息本体已落库，不回滚）。
func (s *MessageService) SendMessage(convID, senderUID, senderName, text string) (*models.Message, error) {
	if senderUID == "" {
		return nil, ErrAuthRequired
	}
	if convID == "" || text == "" {
		return nil, fmt.Errorf("conv_id and text are required")
	}

	msg := &models.Message{
		MessageID:      uuid.NewString(),
		ConversationID: convID,
		SenderUID:      senderUID,
		SenderName:     senderName,
		Content:        text,
	}
	if err := s.msgDAO.Create(msg); err != nil {
		return nil, fmt.Errorf("%w: append: %v", ErrSendFailed, err)
	}

	now := time.Now()
	if err := s.convDAO.UpdateLastMessage(convID, text, senderUID, now); err != nil {
		// merge 写幂等，安全重试一次
		if err = s.convDAO.UpdateLastMessage(convID, text, senderUID, now); err != nil {
			return msg, fmt.Errorf("%w: metadata: %v", ErrSendFailed, err)
		}
	}

	ctx := context.Background()
	s.Bus.Publish(ctx, cons.ChannelConversationMessages(convID))
	s.Bus.Publish(ctx, cons.ChannelConversations)

	s.pushToParticipants(convID, senderUID, cons.EventMessageNew, msg)
	return msg, nil
}

// EditMessage 编辑消息。只允许作者本人；置 edited 标记和编辑时间。
func (s *MessageService) EditMessage(convID, messageID, requesterUID, newText string) error {
	if requesterUID == "" {
		return ErrAuthRequired
	}
	msg, err := s.msgDAO.FindByMessageID(messageID)
	if err != nil {
		return err
	}
	if msg.ConversationID != convID {
		return fmt.Errorf("message %s not in conversation %s", messageID, convID)
	}
	if msg.SenderUID != requesterUID {
		return ErrUnauthorized
	}

	now := time.Now()
	if err := s.msgDAO.UpdateEdited(messageID, newText, &now); err != nil {
		return err
	}

	s.Bus.Publish(context.Background(), cons.ChannelConversationMessages(convID))
	msg.Content = newText
	msg.Edited = true
	msg.EditedAt = &now
	s.pushToParticipants(convID, requesterUID, cons.EventMessageEdited, msg)
	return nil
}

// DeleteMessage 硬删消息（只允许作者本人），并用剩余最新一条刷新会话元数据。
func (s *MessageService) DeleteMessage(convID, messageID, requesterUID string) error {
	if requesterUID == "" {
		return ErrAuthRequired
	}
	msg, err := s.msgDAO.FindByMessageID(messageID)
	if err != nil {
		return err
	}
	if msg.ConversationID != convID {
		return fmt.Errorf("message %s not in conversation %s", messageID, convID)
	}
	if msg.SenderUID != requesterUID {
		return ErrUnauthorized
	}

	if err := s.msgDAO.HardDelete(messageID); err != nil {
		return err
	}

	// 删的可能正是 last_message，按剩余最新一条回填
	now := time.Now()
	latest, err := s.msgDAO.LatestByConversation(convID)
	if err == nil {
		text, sender := "", ""
		if latest != nil {
			text, sender = latest.Content, latest.SenderUID
		}
		if uerr := s.convDAO.UpdateLastMessage(convID, text, sender, now); uerr != nil {
			log.Printf("DeleteMessage: refresh metadata: %v", uerr)
		}
	}

	ctx := context.Background()
	s.Bus.Publish(ctx, cons.ChannelConversationMessages(convID))
	s.Bus.Publish(ctx, cons.ChannelConversations)
	s.pushToParticipants(convID, requesterUID, cons.EventMessageDeleted, msg)
	return nil
}

// ListMessages 会话全部消息（发送时间升序）
func (s *MessageService) ListMessages(convID string) ([]models.Message, error) {
	return s.msgDAO.ListByConversation(convID)
}

// SubscribeMessages 订阅会话消息流。每次回调给当前完整有序列表，
// 需要“基线之后新增了什么”的调用方（通知引擎）自己按时间戳差分。
func (s *MessageService) SubscribeMessages(convID string, onChange func([]models.Message)) (realtime.CancelFunc, error) {
	if convID == "" {
		return nil, fmt.Errorf("conv_id is required")
	}
	return s.Bus.Subscribe(cons.ChannelConversationMessages(convID), func() {
		msgs, err := s.msgDAO.ListByConversation(convID)
		if err != nil {
			return
		}
		onChange(msgs)
	})
}

// pushToParticipants 给会话里除 actor 外的在线成员推 WS 事件（尽力而为）
func (s *MessageService) pushToParticipants(convID, actorUID, eventType string, msg *models.Message) {
	if s.WsNotifier == nil {
		return
	}
	conv, err := s.convDAO.FindByID(convID)
	if err != nil {
		return
	}

	payload := struct {
		Type           string     `json:"type"`
		ConversationID string     `json:"conversation_id"`
		MessageID      string     `json:"message_id"`
		SenderUID      string     `json:"sender_uid"`
		SenderName     string     `json:"sender_name"`
		Content        string     `json:"content"`
		Edited         bool       `json:"edited"`
		CreatedAt      time.Time  `json:"created_at"`
		EditedAt       *time.Time `json:"edited_at,omitempty"`
	}{
		Type:           eventType,
		ConversationID: convID,
		MessageID:      msg.MessageID,
		SenderUID:      msg.SenderUID,
		SenderName:     msg.SenderName,
		Content:        msg.Content,
		Edited:         msg.Edited,
		CreatedAt:      msg.CreatedAt,
		EditedAt:       msg.EditedAt,
	}
	b, _ := json.Marshal(payload)
	for _, uid := range conv.ParticipantList() {
		if uid == actorUID {
			continue
		}
		s.WsNotifier(uid, b)
	}
}

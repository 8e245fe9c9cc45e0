package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Josef-miguel/tripchat-sdk/cons"
	"github.com/Josef-miguel/tripchat-sdk/models"
	"github.com/Josef-miguel/tripchat-sdk/realtime"
	"github.com/Josef-miguel/tripchat-sdk/repository"
)

// ConversationID 私聊会话 ID：两个 UID 升序后用 "_" 拼接。
// 任一为空返回 ""。纯函数：双方各自算必然得到同一个值，
// 这是整个消息模型不需要协调就幂等的根。
func ConversationID(userA, userB string) string {
	if userA == "" || userB == "" {
		return ""
	}
	if userB < userA {
		userA, userB = userB, userA
	}
	return userA + "_" + userB
}

// GroupConversationID 群会话 ID：固定前缀 + 行程 ID
func GroupConversationID(eventID string) string {
	if eventID == "" {
		return ""
	}
	return cons.GroupIDPrefix + eventID
}

// ConversationService 会话生命周期：确保存在（merge 盲写）、列表、订阅发现。
type ConversationService struct {
	*Service
	convDAO  *repository.ConversationDAO
	eventDAO *repository.EventDAO
	userDAO  *models.UserDAO
}

func NewConversationService(s *Service) *ConversationService {
	return &ConversationService{
		Service:  s,
		convDAO:  repository.NewConversationDAO(s.DB),
		eventDAO: repository.NewEventDAO(s.DB),
		userDAO:  models.NewUserDAO(s.DB),
	}
}

// EnsureConversation 确保私聊会话存在并返回。幂等：
// 不查存在性直接 merge 盲写，已存在只刷新 updated_at。
func (s *ConversationService) EnsureConversation(selfUID, otherUID string) (*models.Conversation, error) {
	if selfUID == "" {
		return nil, ErrAuthRequired
	}
	convID := ConversationID(selfUID, otherUID)
	if convID == "" {
		return nil, fmt.Errorf("other uid is required")
	}

	now := time.Now()
	if err := s.convDAO.EnsurePair(convID, []string{selfUID, otherUID}, now); err != nil {
		return nil, err
	}
	s.Bus.Publish(context.Background(), cons.ChannelConversations)

	return s.convDAO.FindByID(convID)
}

// EnsureGroupConversation 确保行程群会话存在并返回。
// 群名取行程标题，成员缓存取当前行程名单；重复调用只会把缓存刷到最新。
func (s *ConversationService) EnsureGroupConversation(selfUID, eventID string) (*models.Conversation, error) {
	if selfUID == "" {
		return nil, ErrAuthRequired
	}
	convID := GroupConversationID(eventID)
	if convID == "" {
		return nil, fmt.Errorf("event id is required")
	}

	groupName := ""
	if evt, err := s.eventDAO.FindByID(eventID); err == nil {
		groupName = evt.Title
	}
	if groupName == "" {
		groupName = "行程群聊"
	}

	roster, err := s.userDAO.ListUIDsJoinedEvent(eventID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.convDAO.EnsureGroup(convID, eventID, groupName, roster, now); err != nil {
		return nil, err
	}
	s.Bus.Publish(context.Background(), cons.ChannelConversations)

	return s.convDAO.FindByID(convID)
}

// GetConversation 查单个会话
func (s *ConversationService) GetConversation(convID string) (*models.Conversation, error) {
	return s.convDAO.FindByID(convID)
}

// ListConversationsFor 用户参与的会话列表（按最近更新排，带最后消息预览）
func (s *ConversationService) ListConversationsFor(uid string) ([]models.Conversation, error) {
	if uid == "" {
		return nil, ErrAuthRequired
	}
	return s.convDAO.ListByParticipant(uid)
}

// SubscribeConversations 订阅“我参与的会话集合”。每次有会话新建或
// last_message 变化，回调收到当前完整列表（不是差分）。
func (s *ConversationService) SubscribeConversations(uid string, onChange func([]models.Conversation)) (realtime.CancelFunc, error) {
	if uid == "" {
		return nil, ErrAuthRequired
	}
	return s.Bus.Subscribe(cons.ChannelConversations, func() {
		convs, err := s.convDAO.ListByParticipant(uid)
		if err != nil {
			// 查询失败降级为漏一拍，下一个信号会追上
			return
		}
		onChange(convs)
	})
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Josef-miguel/tripchat-sdk/cons"
	"github.com/Josef-miguel/tripchat-sdk/models"
	"github.com/Josef-miguel/tripchat-sdk/repository"
	"gorm.io/gorm"
)

// MemberService 群成员与行程名单的对齐。
// 名单的权威来源是 user.joined_events；群会话的 participants 只是缓存，
// 会滞后，所以开群聊前有双重检查 + 自愈（SyncMembers）。
type MemberService struct {
	*Service
	convDAO  *repository.ConversationDAO
	eventDAO *repository.EventDAO
	userDAO  *models.UserDAO
}

func NewMemberService(s *Service) *MemberService {
	return &MemberService{
		Service:  s,
		convDAO:  repository.NewConversationDAO(s.DB),
		eventDAO: repository.NewEventDAO(s.DB),
		userDAO:  models.NewUserDAO(s.DB),
	}
}

// SyncMembers 把群会话的成员缓存对齐到行程名单，返回名单。
// 幂等：名单没变时重复调用没有语义变化（只刷 updated_at）。
// 群会话不存在时顺手建出来（merge 盲写）。
func (s *MemberService) SyncMembers(eventID string) ([]string, error) {
	if eventID == "" {
		return nil, fmt.Errorf("event id is required")
	}

	roster, err := s.userDAO.ListUIDsJoinedEvent(eventID)
	if err != nil {
		return nil, err
	}

	groupName := ""
	if evt, err := s.eventDAO.FindByID(eventID); err == nil {
		groupName = evt.Title
	}
	if groupName == "" {
		groupName = "行程群聊"
	}

	convID := GroupConversationID(eventID)
	now := time.Now()
	if err := s.convDAO.EnsureGroup(convID, eventID, groupName, roster, now); err != nil {
		return nil, err
	}

	s.Bus.Publish(context.Background(), cons.ChannelConversations)
	s.pushMembersSynced(convID, eventID, roster)
	return roster, nil
}

// CanAccessGroup 用户能否进群聊：已在成员缓存里，或仍在行程名单里
// （后者说明缓存滞后，先 SyncMembers 自愈再放行）。
// 都不在返回 ErrAccessDenied。
func (s *MemberService) CanAccessGroup(uid, eventID string) error {
	if uid == "" {
		return ErrAuthRequired
	}
	convID := GroupConversationID(eventID)
	if convID == "" {
		return fmt.Errorf("event id is required")
	}

	conv, err := s.convDAO.FindByID(convID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if conv != nil {
		for _, p := range conv.ParticipantList() {
			if p == uid {
				return nil
			}
		}
	}

	// 不在缓存里：查权威名单。还在名单上就自愈后放行。
	user, err := s.userDAO.FindByUID(uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAccessDenied
		}
		return err
	}
	for _, joined := range user.JoinedEventList() {
		if joined == eventID {
			if _, err := s.SyncMembers(eventID); err != nil {
				return err
			}
			return nil
		}
	}
	return ErrAccessDenied
}

func (s *MemberService) pushMembersSynced(convID, eventID string, roster []string) {
	if s.WsNotifier == nil {
		return
	}
	payload := map[string]any{
		"type":            cons.EventMembersSynced,
		"conversation_id": convID,
		"event_id":        eventID,
		"members":         roster,
	}
	b, _ := json.Marshal(payload)
	for _, uid := range roster {
		s.WsNotifier(uid, b)
	}
}

package repository

import (
	"time"

	"github.com/Josef-miguel/tripchat-sdk/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationDAO 封装 Conversation 相关的数据库操作
//
// 约定：
// - 只做“数据访问”（CRUD/查询封装），不做业务编排（权限、通知等）。
// - Ensure 系列都是 merge 语义的盲写：存在则只刷新给定字段，缺字段不清空。
type ConversationDAO struct {
	db *gorm.DB
}

func NewConversationDAO(db *gorm.DB) *ConversationDAO {
	return &ConversationDAO{db: db}
}

// WithDB 用于在事务（tx）中复用 DAO
func (dao *ConversationDAO) WithDB(db *gorm.DB) *ConversationDAO {
	if db == nil {
		return dao
	}
	return &ConversationDAO{db: db}
}

// EnsurePair 确保私聊会话存在。ID 是双方各自推导出的同一个值，
// 并发双写落到同一行：冲突时只刷新 updated_at，last_message 等已有字段不动。
func (dao *ConversationDAO) EnsurePair(convID string, participants []string, now time.Time) error {
	conv := &models.Conversation{
		ID:           convID,
		Type:         1,
		Participants: models.EncodeStringList(participants),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return dao.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{"updated_at": now}),
	}).Create(conv).Error
}

// EnsureGroup 确保群会话存在，并刷新群名/成员缓存。
// 成员名单是行程名单的缓存，这里直接覆盖写；last_message 不动。
func (dao *ConversationDAO) EnsureGroup(convID, eventID, groupName string, participants []string, now time.Time) error {
	conv := &models.Conversation{
		ID:           convID,
		Type:         2,
		EventID:      eventID,
		GroupName:    groupName,
		Participants: models.EncodeStringList(participants),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return dao.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"group_name":   groupName,
			"participants": models.EncodeStringList(participants),
			"updated_at":   now,
		}),
	}).Create(conv).Error
}

// UpdateLastMessage 刷新会话的最后消息元数据
func (dao *ConversationDAO) UpdateLastMessage(convID, text, senderUID string, now time.Time) error {
	return dao.db.Model(&models.Conversation{}).
		Where("id = ?", convID).
		Updates(map[string]any{
			"last_message":    text,
			"last_sender_uid": senderUID,
			"updated_at":      now,
		}).Error
}

// UpdateParticipants 覆盖写成员缓存（群名单对齐用）
func (dao *ConversationDAO) UpdateParticipants(convID string, participants []string, now time.Time) error {
	return dao.db.Model(&models.Conversation{}).
		Where("id = ?", convID).
		Updates(map[string]any{
			"participants": models.EncodeStringList(participants),
			"updated_at":   now,
		}).Error
}

// FindByID 查单个会话
func (dao *ConversationDAO) FindByID(convID string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := dao.db.Where("id = ?", convID).First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListByParticipant 用户参与的全部会话（array-contains 语义），按最近更新排。
// 通知引擎的外层发现查询就是它。
func (dao *ConversationDAO) ListByParticipant(uid string) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := dao.db.Model(&models.Conversation{}).
		Where(datatypes.JSONArrayQuery("participants").Contains(uid)).
		Order("updated_at DESC").
		Find(&convs).Error
	return convs, err
}

package models

import (
	"gorm.io/gorm"
)

// MessageDAO 封装 Message 相关的数据库操作
type MessageDAO struct {
	db *gorm.DB
}

// NewMessageDAO 创建 MessageDAO 实例
func NewMessageDAO(db *gorm.DB) *MessageDAO {
	return &MessageDAO{db: db}
}

// Create 创建消息
func (dao *MessageDAO) Create(msg *Message) error {
	return dao.db.Create(msg).Error
}

// FindByMessageID 根据对外消息 ID 查找
func (dao *MessageDAO) FindByMessageID(messageID string) (*Message, error) {
	var msg Message
	if err := dao.db.Where("message_id = ?", messageID).First(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListByConversation 按发送时间升序取会话全部消息。
// 订阅回调要的是“当前完整有序列表”，所以不分页；id 作为同时间戳的次序兜底。
func (dao *MessageDAO) ListByConversation(convID string) ([]Message, error) {
	var messages []Message
	err := dao.db.Where("conversation_id = ?", convID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

// UpdateEdited 编辑消息内容并打 edited 标记
func (dao *MessageDAO) UpdateEdited(messageID string, content string, editedAt interface{}) error {
	return dao.db.Model(&Message{}).
		Where("message_id = ?", messageID).
		Updates(map[string]any{"content": content, "edited": true, "edited_at": editedAt}).Error
}

// HardDelete 物理删除消息（编辑/删除只允许作者本人，权限在 service 层校验）
func (dao *MessageDAO) HardDelete(messageID string) error {
	return dao.db.Where("message_id = ?", messageID).Delete(&Message{}).Error
}

// LatestByConversation 取会话最新一条消息；没有返回 nil。
func (dao *MessageDAO) LatestByConversation(convID string) (*Message, error) {
	var msg Message
	err := dao.db.Where("conversation_id = ?", convID).
		Order("created_at DESC, id DESC").
		First(&msg).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	prefix = "tc_"
)

// User 用户表
// UID 是对外的稳定标识（auth 侧发的），所有会话/消息只引用 UID，不引用自增 ID。
type User struct {
	ID          uint64 `gorm:"primarykey"`
	UID         string `gorm:"size:36;uniqueIndex;not null"`      // 对外用户 ID
	Username    string `gorm:"size:50;uniqueIndex;not null"`      // 用户名
	Nickname    string `gorm:"size:100;not null"`                 // 昵称
	Password    string `gorm:"size:255;not null"`                 // 密码（bcrypt）
	Email       string `gorm:"size:100;uniqueIndex;default:null"` // 邮箱
	IsOrganizer bool   `gorm:"default:false"`                     // 是否行程组织者

	// JoinedEvents 已加入的行程 ID 列表（JSON 字符串数组）。
	// 群成员名单以这里为准，群会话的 participants 只是它的缓存。
	JoinedEvents datatypes.JSON `gorm:"type:json"`

	LastLoginAt *time.Time // 最后登录时间
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (User) TableName() string {
	return prefix + "user"
}

// JoinedEventList 解析 JoinedEvents，坏数据按空处理
func (u *User) JoinedEventList() []string {
	return decodeStringList(u.JoinedEvents)
}

// Conversation 会话表（私聊 + 群聊共用一张表）。
// ID 是推导出来的字符串：
//   - 私聊：两个 UID 升序用 "_" 拼接，双方各自算都得到同一个 ID；
//   - 群聊：group_<eventID>。
//
// 所以 Ensure 时不需要先查存在性，merge 盲写即可。
type Conversation struct {
	ID   string `gorm:"primarykey;size:191"`
	Type uint8  `gorm:"type:tinyint;default:1;index"` // 1-私聊 2-群聊

	// Participants 参与者 UID 列表（JSON 字符串数组）。
	// 群聊时是行程名单的缓存，由 MemberService 对齐。
	Participants datatypes.JSON `gorm:"type:json"`

	EventID   string `gorm:"size:64;index;default:null"` // 群聊绑定的行程 ID
	GroupName string `gorm:"size:200"`                   // 群名（取行程标题）

	LastMessage   string `gorm:"size:500"` // 最后一条消息文本
	LastSenderUID string `gorm:"size:36"`  // 最后一条消息的发送者
	CreatedAt     time.Time
	UpdatedAt     time.Time `gorm:"index"`
}

func (Conversation) TableName() string {
	return prefix + "conversation"
}

// ParticipantList 解析 Participants
func (c *Conversation) ParticipantList() []string {
	return decodeStringList(c.Participants)
}

// Message 消息表
type Message struct {
	ID             uint64 `gorm:"primarykey"`
	MessageID      string `gorm:"size:36;uniqueIndex;not null"` // 对外消息 ID（uuid）
	ConversationID string `gorm:"size:191;index;not null"`      // 所属会话
	SenderUID      string `gorm:"size:36;index;not null"`       // 发送者 UID
	SenderName     string `gorm:"size:100"`                     // 发送者展示名（冗余，群聊列表直接用）
	Content        string `gorm:"type:text;not null"`           // 消息内容
	Edited         bool   `gorm:"default:false"`                // 是否被编辑过
	EditedAt       *time.Time
	CreatedAt      time.Time `gorm:"index"`
	UpdatedAt      time.Time
}

func (Message) TableName() string {
	return prefix + "message"
}

// Event 行程表。对本 SDK 是外部数据：只读归属和标题。
// 归属字段有历史变体（uid/owner_id/user_id/creator.uid），见 cons.EventOwnerFields。
type Event struct {
	ID        string         `gorm:"primarykey;size:64"`
	Title     string         `gorm:"size:200"`
	UID       string         `gorm:"size:36;index;default:null"`                 // 归属变体1
	OwnerID   string         `gorm:"column:owner_id;size:36;index;default:null"` // 归属变体2
	UserID    string         `gorm:"column:user_id;size:36;index;default:null"`  // 归属变体3
	Creator   datatypes.JSON `gorm:"type:json"`                                  // 归属变体4：creator.uid
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Event) TableName() string {
	return prefix + "event"
}

// Review 行程评价/评论表。本 SDK 只写入和计数。
type Review struct {
	ID          uint64    `gorm:"primarykey"`
	EventID     string    `gorm:"size:64;index;not null"` // 所属行程
	AuthorUID   string    `gorm:"size:36;index"`          // 评论者
	Username    string    `gorm:"size:100"`               // 评论者展示名
	CommentText string    `gorm:"type:text"`              // 内容
	CreatedAt   time.Time `gorm:"index"`
}

func (Review) TableName() string {
	return prefix + "review"
}

// EncodeStringList 把字符串列表编码成 JSON 列值（nil 按空数组）
func EncodeStringList(list []string) datatypes.JSON {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return b
}

func decodeStringList(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	return list
}

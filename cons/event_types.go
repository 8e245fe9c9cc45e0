package cons

// 统一的 WS 推送事件类型（type 字段）
const (
	EventMessageNew     = "message.new"     // 新消息
	EventMessageEdited  = "message.edited"  // 消息被编辑
	EventMessageDeleted = "message.deleted" // 消息被删除
	EventUnreadChanged  = "unread.changed"  // 未读聚合计数变化
	EventMembersSynced  = "group.members.synced" // 群成员与行程名单对齐
)

// 会话类型
const (
	ConversationTypePair  uint8 = 1 // 私聊（两个 UID 推导出固定 ID）
	ConversationTypeGroup uint8 = 2 // 群聊（绑定一个行程/事件）
)

// GroupIDPrefix 群会话 ID 前缀：group_<eventID>
const GroupIDPrefix = "group_"

// EventOwnerFields 事件归属字段的历史变体。
// 老数据里事件的“创建者”可能写在不同列（甚至嵌在 creator JSON 里），
// 发现自己拥有的事件时要并行查全部变体，单个失败不影响其他。
// 这是数据迁移欠债，不要在这里“猜”一个规范 schema。
var EventOwnerFields = []string{"uid", "owner_id", "user_id"}

// EventOwnerJSONField creator JSON 里的归属字段（creator.uid）
const EventOwnerJSONField = "creator"

package cons

// 变更总线的频道命名。
// 频道里只发“有变化”的信号，不带数据；订阅方收到后自己重查全量结果。

const (
	// ChannelConversations 会话集合发生变化（新建会话/last_message 更新）。
	// 通知聚合引擎的外层发现订阅挂在这里。
	ChannelConversations = "tripchat:conversations"

	// ChannelEvents 事件集合变化（新建/归属变化），触发 owned-event 重发现。
	ChannelEvents = "tripchat:events"
)

// ChannelConversationMessages 某个会话的消息流
func ChannelConversationMessages(convID string) string {
	return "tripchat:conv:" + convID + ":messages"
}

// ChannelEventReviews 某个事件的评价/评论流
func ChannelEventReviews(eventID string) string {
	return "tripchat:event:" + eventID + ":reviews"
}

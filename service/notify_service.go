package service

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/Josef-miguel/tripchat-sdk/cons"
	"github.com/Josef-miguel/tripchat-sdk/models"
	"github.com/Josef-miguel/tripchat-sdk/realtime"
	"github.com/Josef-miguel/tripchat-sdk/repository"
)

// UnreadAggregate 未读聚合视图
type UnreadAggregate struct {
	Messages int `json:"messages"`
	Reviews  int `json:"reviews"`
	Total    int `json:"total"`
}

// Registry key 前缀。外层两个发现订阅 + 内层每资源一个。
const (
	regKeyConvDiscovery  = "discovery:conversations"
	regKeyEventDiscovery = "discovery:events"
	regKeyConvPrefix     = "conv:"
	regKeyEventPrefix    = "event:"
)

// NotifyService 未读通知聚合引擎。
//
// Start(uid) 时把两类基线置为“现在”：会话开始前就存在的消息/评论
// 永远不计数，只统计本次在线期间的新到达（有意的简化，不是 bug）。
// 外层订阅发现“我参与的会话 / 我拥有的行程”，内层给每个资源挂一个
// 订阅，回调里按基线差分计数。订阅的增删全走 Registry，
// teardown 后晚到的发现回调注册不进去，不会漏订阅出去。
type NotifyService struct {
	*Service

	// 查询可注入（默认走 DAO），测试时替换
	listConversations func(uid string) ([]models.Conversation, error)
	listMessages      func(convID string) ([]models.Message, error)
	ownedEventIDs     func(uid string) ([]string, []error)
	listReviews       func(eventID string) ([]models.Review, error)

	// OnError 外层发现订阅断开时回调（UI 提示可重试）。
	// 内层订阅断开不走这里：只摘掉那一个资源，引擎继续跑。
	OnError func(err error)

	// OnChange 聚合计数变化时回调（engine 注入，推 WS badge）
	OnChange func(uid string, agg UnreadAggregate)

	mu             sync.Mutex
	uid            string
	registry       *realtime.Registry
	chanToKey      map[string]string // 订阅频道 -> registry key（断开时反查）
	msgBaseline    time.Time
	reviewBaseline time.Time
	msgCount       int
	reviewCount    int
	countedMsgs    map[string]struct{} // 已计数的 message_id
	countedReviews map[uint64]struct{} // 已计数的 review id
}

func NewNotifyService(s *Service) *NotifyService {
	convDAO := repository.NewConversationDAO(s.DB)
	msgDAO := models.NewMessageDAO(s.DB)
	eventDAO := repository.NewEventDAO(s.DB)
	reviewDAO := repository.NewReviewDAO(s.DB)

	n := &NotifyService{
		Service:           s,
		listConversations: convDAO.ListByParticipant,
		listMessages:      msgDAO.ListByConversation,
		ownedEventIDs:     eventDAO.OwnedEventIDs,
		listReviews:       reviewDAO.ListByEvent,
		chanToKey:         make(map[string]string),
	}
	if s.Bus != nil {
		s.Bus.OnError = n.onSubscriptionError
	}
	return n
}

// Start 登录态出现时调用。重复 Start（切换账号）先把旧引擎停干净。
func (n *NotifyService) Start(uid string) error {
	if uid == "" {
		return ErrAuthRequired
	}
	n.Stop()

	now := time.Now()
	reg := realtime.NewRegistry()

	n.mu.Lock()
	n.uid = uid
	n.registry = reg
	n.chanToKey = make(map[string]string)
	n.msgBaseline = now
	n.reviewBaseline = now
	n.msgCount = 0
	n.reviewCount = 0
	n.countedMsgs = make(map[string]struct{})
	n.countedReviews = make(map[uint64]struct{})
	n.mu.Unlock()

	// 两个外层发现订阅；建不起来就整体回退
	err := reg.Register(regKeyConvDiscovery, func() (realtime.CancelFunc, error) {
		return n.subscribe(cons.ChannelConversations, regKeyConvDiscovery, func() {
			n.reconcileConversations(uid, reg)
		})
	})
	if err == nil {
		err = reg.Register(regKeyEventDiscovery, func() (realtime.CancelFunc, error) {
			return n.subscribe(cons.ChannelEvents, regKeyEventDiscovery, func() {
				n.reconcileEvents(uid, reg)
			})
		})
	}
	if err != nil {
		n.Stop()
		return err
	}
	return nil
}

// Stop 登录态消失或宿主卸载时调用。幂等，调两次不炸。
func (n *NotifyService) Stop() {
	n.mu.Lock()
	reg := n.registry
	n.registry = nil
	n.uid = ""
	n.msgCount = 0
	n.reviewCount = 0
	n.countedMsgs = nil
	n.countedReviews = nil
	n.chanToKey = make(map[string]string)
	n.mu.Unlock()

	// 锁外清订阅：cancel 会等回调 goroutine 退出，回调又要拿锁
	if reg != nil {
		reg.UnregisterAll()
	}
}

// Counts 当前聚合
func (n *NotifyService) Counts() UnreadAggregate {
	n.mu.Lock()
	defer n.mu.Unlock()
	return UnreadAggregate{
		Messages: n.msgCount,
		Reviews:  n.reviewCount,
		Total:    n.msgCount + n.reviewCount,
	}
}

// MarkAsRead 计数清零、基线推到现在。订阅不动，之后的新到达照常计数。
func (n *NotifyService) MarkAsRead() {
	now := time.Now()

	n.mu.Lock()
	if n.registry == nil {
		n.mu.Unlock()
		return
	}
	uid := n.uid
	n.msgCount = 0
	n.reviewCount = 0
	n.msgBaseline = now
	n.reviewBaseline = now
	n.countedMsgs = make(map[string]struct{})
	n.countedReviews = make(map[uint64]struct{})
	n.mu.Unlock()

	n.emitChange(uid)
}

// Started 引擎是否在跑
func (n *NotifyService) Started() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry != nil
}

// subscribe 挂一个总线订阅并登记频道->key 的反查表
func (n *NotifyService) subscribe(channel, key string, fire func()) (realtime.CancelFunc, error) {
	cancel, err := n.Bus.Subscribe(channel, fire)
	if err != nil {
		return nil, err
	}
	n.mu.Lock()
	n.chanToKey[channel] = key
	n.mu.Unlock()
	return cancel, nil
}

// reconcileConversations 外层会话发现回调：把内层消息订阅集合
// 对齐到“我现在参与的会话集合”：新出现的挂上，消失的摘掉。
func (n *NotifyService) reconcileConversations(uid string, reg *realtime.Registry) {
	convs, err := n.listConversations(uid)
	if err != nil {
		log.Printf("notify: discover conversations: %v", err)
		return
	}

	want := make(map[string]struct{}, len(convs))
	for _, c := range convs {
		convID := c.ID
		key := regKeyConvPrefix + convID
		want[key] = struct{}{}
		_ = reg.Register(key, func() (realtime.CancelFunc, error) {
			return n.subscribe(cons.ChannelConversationMessages(convID), key, func() {
				n.recountMessages(uid, reg, convID)
			})
		})
	}

	for _, key := range reg.Keys() {
		if len(key) <= len(regKeyConvPrefix) || key[:len(regKeyConvPrefix)] != regKeyConvPrefix {
			continue
		}
		if _, ok := want[key]; !ok {
			reg.Unregister(key)
		}
	}
}

// reconcileEvents 外层行程发现回调：对齐内层评论订阅集合。
// 归属查询的部分失败（历史字段变体坏掉一个）只记日志，不拦别的。
func (n *NotifyService) reconcileEvents(uid string, reg *realtime.Registry) {
	ids, errs := n.ownedEventIDs(uid)
	for _, err := range errs {
		log.Printf("notify: discover owned events (partial): %v", err)
	}

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		eventID := id
		key := regKeyEventPrefix + eventID
		want[key] = struct{}{}
		_ = reg.Register(key, func() (realtime.CancelFunc, error) {
			return n.subscribe(cons.ChannelEventReviews(eventID), key, func() {
				n.recountReviews(uid, reg, eventID)
			})
		})
	}

	for _, key := range reg.Keys() {
		if len(key) <= len(regKeyEventPrefix) || key[:len(regKeyEventPrefix)] != regKeyEventPrefix {
			continue
		}
		if _, ok := want[key]; !ok {
			reg.Unregister(key)
		}
	}
}

// recountMessages 某会话消息流回调：基线之后、非本人发的、没计过的才计。
// 只认“新增”，已计数消息被编辑/删除不回调计数。
func (n *NotifyService) recountMessages(uid string, reg *realtime.Registry, convID string) {
	msgs, err := n.listMessages(convID)
	if err != nil {
		log.Printf("notify: recount conv %s: %v", convID, err)
		return
	}

	n.mu.Lock()
	if n.registry != reg {
		// teardown/重启赛跑期的晚到回调，丢弃
		n.mu.Unlock()
		return
	}
	changed := false
	for i := range msgs {
		m := &msgs[i]
		if !m.CreatedAt.After(n.msgBaseline) {
			continue
		}
		if m.SenderUID == uid {
			continue
		}
		if _, ok := n.countedMsgs[m.MessageID]; ok {
			continue
		}
		n.countedMsgs[m.MessageID] = struct{}{}
		n.msgCount++
		changed = true
	}
	n.mu.Unlock()

	if changed {
		n.emitChange(uid)
	}
}

// recountReviews 某行程评论流回调：基线之后、没计过的都计（不过滤作者）。
func (n *NotifyService) recountReviews(uid string, reg *realtime.Registry, eventID string) {
	reviews, err := n.listReviews(eventID)
	if err != nil {
		log.Printf("notify: recount event %s: %v", eventID, err)
		return
	}

	n.mu.Lock()
	if n.registry != reg {
		n.mu.Unlock()
		return
	}
	changed := false
	for i := range reviews {
		r := &reviews[i]
		if !r.CreatedAt.After(n.reviewBaseline) {
			continue
		}
		if _, ok := n.countedReviews[r.ID]; ok {
			continue
		}
		n.countedReviews[r.ID] = struct{}{}
		n.reviewCount++
		changed = true
	}
	n.mu.Unlock()

	if changed {
		n.emitChange(uid)
	}
}

// onSubscriptionError 订阅意外断开：
// - 内层：只摘那一个资源，发现订阅还在，下次重发现会补挂；
// - 外层：丢计数没意义，surface 给 OnError 让 UI 给“重试”。
func (n *NotifyService) onSubscriptionError(channel string, err error) {
	n.mu.Lock()
	key, ok := n.chanToKey[channel]
	if ok {
		delete(n.chanToKey, channel)
	}
	reg := n.registry
	n.mu.Unlock()

	if !ok || reg == nil {
		return
	}
	if key == regKeyConvDiscovery || key == regKeyEventDiscovery {
		log.Printf("notify: discovery subscription lost (%s): %v", key, err)
		if n.OnError != nil {
			n.OnError(err)
		}
		return
	}
	log.Printf("notify: resource subscription lost (%s): %v", key, err)
	reg.Unregister(key)
}

// emitChange 把最新聚合回调出去 + WS 推给本人（都尽力而为）
func (n *NotifyService) emitChange(uid string) {
	agg := n.Counts()
	if n.OnChange != nil {
		n.OnChange(uid, agg)
	}
	if n.WsNotifier != nil {
		payload := struct {
			Type   string          `json:"type"`
			Unread UnreadAggregate `json:"unread"`
		}{Type: cons.EventUnreadChanged, Unread: agg}
		b, _ := json.Marshal(payload)
		n.WsNotifier(uid, b)
	}
}

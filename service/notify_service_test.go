package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Josef-miguel/tripchat-sdk/cons"
	"github.com/Josef-miguel/tripchat-sdk/models"
	"github.com/Josef-miguel/tripchat-sdk/realtime"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// notifyFixture 内存假数据源 + miniredis 总线。
// 查询函数直接注入，订阅/信号链路走真实的 Bus/Registry。
type notifyFixture struct {
	mu      sync.Mutex
	convs   []models.Conversation
	msgs    map[string][]models.Message
	events  []string
	reviews map[string][]models.Review

	bus *realtime.Bus
	n   *NotifyService
}

func newNotifyFixture(t *testing.T) *notifyFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := &notifyFixture{
		msgs:    make(map[string][]models.Message),
		reviews: make(map[string][]models.Review),
		bus:     realtime.NewBus(rdb),
	}

	n := NewNotifyService(&Service{RDB: rdb, TablePrefix: "tc_", Bus: f.bus})
	n.listConversations = func(uid string) ([]models.Conversation, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		return append([]models.Conversation(nil), f.convs...), nil
	}
	n.listMessages = func(convID string) ([]models.Message, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		return append([]models.Message(nil), f.msgs[convID]...), nil
	}
	n.ownedEventIDs = func(uid string) ([]string, []error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		return append([]string(nil), f.events...), nil
	}
	n.listReviews = func(eventID string) ([]models.Review, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		return append([]models.Review(nil), f.reviews[eventID]...), nil
	}
	f.n = n
	t.Cleanup(n.Stop)
	return f
}

func (f *notifyFixture) addConversation(id string) {
	f.mu.Lock()
	f.convs = append(f.convs, models.Conversation{ID: id})
	f.mu.Unlock()
	f.bus.Publish(context.Background(), cons.ChannelConversations)
}

func (f *notifyFixture) addMessage(convID, senderUID, messageID string) {
	f.mu.Lock()
	f.msgs[convID] = append(f.msgs[convID], models.Message{
		MessageID:      messageID,
		ConversationID: convID,
		SenderUID:      senderUID,
		Content:        "x",
		CreatedAt:      time.Now().Add(time.Second), // 基线之后
	})
	f.mu.Unlock()
	f.bus.Publish(context.Background(), cons.ChannelConversationMessages(convID))
}

func (f *notifyFixture) addOwnedEvent(id string) {
	f.mu.Lock()
	f.events = append(f.events, id)
	f.mu.Unlock()
	f.bus.Publish(context.Background(), cons.ChannelEvents)
}

func (f *notifyFixture) addReview(eventID, authorUID string, id uint64) {
	f.mu.Lock()
	f.reviews[eventID] = append(f.reviews[eventID], models.Review{
		ID:        id,
		EventID:   eventID,
		AuthorUID: authorUID,
		CreatedAt: time.Now().Add(time.Second),
	})
	f.mu.Unlock()
	f.bus.Publish(context.Background(), cons.ChannelEventReviews(eventID))
}

// waitCounts 轮询直到聚合命中期望（订阅链路是异步的）
func waitCounts(t *testing.T, n *NotifyService, want UnreadAggregate) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if n.Counts() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("counts never reached %+v, last %+v", want, n.Counts())
}

// settle 给异步链路一点时间，然后断言聚合没变
func settleAndAssert(t *testing.T, n *NotifyService, want UnreadAggregate) {
	t.Helper()
	time.Sleep(300 * time.Millisecond)
	if got := n.Counts(); got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestNotifyService_StartRequiresUID(t *testing.T) {
	f := newNotifyFixture(t)
	if err := f.n.Start(""); err != ErrAuthRequired {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
	if f.n.Started() {
		t.Fatalf("engine must not be running")
	}
}

func TestNotifyService_CountsMessagesFromOthers(t *testing.T) {
	f := newNotifyFixture(t)

	if err := f.n.Start("u_1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	f.addConversation("u_1_u_2")
	f.addMessage("u_1_u_2", "u_2", "m1")
	waitCounts(t, f.n, UnreadAggregate{Messages: 1, Reviews: 0, Total: 1})

	// 同一条消息重复信号不会重复计数
	f.bus.Publish(context.Background(), cons.ChannelConversationMessages("u_1_u_2"))
	settleAndAssert(t, f.n, UnreadAggregate{Messages: 1, Reviews: 0, Total: 1})
}

func TestNotifyService_IgnoresOwnMessages(t *testing.T) {
	f := newNotifyFixture(t)

	if err := f.n.Start("u_1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	f.addConversation("u_1_u_2")
	f.addMessage("u_1_u_2", "u_1", "mine")
	settleAndAssert(t, f.n, UnreadAggregate{})

	f.addMessage("u_1_u_2", "u_2", "theirs")
	waitCounts(t, f.n, UnreadAggregate{Messages: 1, Reviews: 0, Total: 1})
}

func TestNotifyService_CountsReviewsIncludingOwn(t *testing.T) {
	f := newNotifyFixture(t)

	if err := f.n.Start("u_1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	f.addOwnedEvent("evt_1")
	// 评论计数不过滤作者：自己评自己的行程也算
	f.addReview("evt_1", "u_1", 1)
	waitCounts(t, f.n, UnreadAggregate{Messages: 0, Reviews: 1, Total: 1})

	f.addReview("evt_1", "u_9", 2)
	waitCounts(t, f.n, UnreadAggregate{Messages: 0, Reviews: 2, Total: 2})
}

func TestNotifyService_MarkAsRead(t *testing.T) {
	f := newNotifyFixture(t)

	if err := f.n.Start("u_1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	f.addConversation("u_1_u_2")
	f.addMessage("u_1_u_2", "u_2", "m1")
	waitCounts(t, f.n, UnreadAggregate{Messages: 1, Reviews: 0, Total: 1})

	// 清零后基线前移，旧消息不再计入
	time.Sleep(1100 * time.Millisecond) // 让旧消息的时间戳落在新基线之前
	f.n.MarkAsRead()
	f.bus.Publish(context.Background(), cons.ChannelConversationMessages("u_1_u_2"))
	settleAndAssert(t, f.n, UnreadAggregate{})

	// 新到达照常计数
	f.addMessage("u_1_u_2", "u_2", "m2")
	waitCounts(t, f.n, UnreadAggregate{Messages: 1, Reviews: 0, Total: 1})
}

func TestNotifyService_StopIsIdempotentAndResets(t *testing.T) {
	f := newNotifyFixture(t)

	if err := f.n.Start("u_1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.addConversation("u_1_u_2")
	f.addMessage("u_1_u_2", "u_2", "m1")
	waitCounts(t, f.n, UnreadAggregate{Messages: 1, Reviews: 0, Total: 1})

	f.n.Stop()
	f.n.Stop() // 幂等

	if f.n.Started() {
		t.Fatalf("engine should be stopped")
	}
	if got := f.n.Counts(); got != (UnreadAggregate{}) {
		t.Fatalf("expected zeroed counts after stop, got %+v", got)
	}

	// 停止后信号不再影响计数
	f.addMessage("u_1_u_2", "u_2", "m2")
	settleAndAssert(t, f.n, UnreadAggregate{})
}

func TestNotifyService_RestartSwitchesUser(t *testing.T) {
	f := newNotifyFixture(t)

	if err := f.n.Start("u_1"); err != nil {
		t.Fatalf("Start u_1: %v", err)
	}
	f.addConversation("u_1_u_2")
	f.addMessage("u_1_u_2", "u_2", "m1")
	waitCounts(t, f.n, UnreadAggregate{Messages: 1, Reviews: 0, Total: 1})

	// 切账号：旧计数清空，新账号从自己的基线起算
	if err := f.n.Start("u_2"); err != nil {
		t.Fatalf("Start u_2: %v", err)
	}
	settleAndAssert(t, f.n, UnreadAggregate{})

	f.addMessage("u_1_u_2", "u_1", "m2")
	waitCounts(t, f.n, UnreadAggregate{Messages: 1, Reviews: 0, Total: 1})
}

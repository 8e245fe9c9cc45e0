package realtime

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/go-redis/redis/v8"
)

// Bus 基于 Redis pub/sub 的变更总线。
//
// 频道里只过“有变化”的信号，不带数据：订阅方收到信号后自己去重查
// 完整结果集（和文档库 onSnapshot 给全量快照是同一个约定）。
// 这样写入方不用关心谁在听、听的人要什么形状的数据。
type Bus struct {
	rdb *redis.Client

	// OnError 订阅意外断开时回调（Cancel 正常取消不算）。
	// 通知引擎用它把单个资源的订阅摘掉，不拖垮整个引擎。
	OnError func(channel string, err error)
}

func NewBus(rdb *redis.Client) *Bus {
	return &Bus{rdb: rdb}
}

// Publish 发一个变更信号。失败只记日志：推送是尽力而为，
// 数据本身已经落库，订阅方下一个信号或重查会追上。
func (b *Bus) Publish(ctx context.Context, channel string) {
	if err := b.rdb.Publish(ctx, channel, "1").Err(); err != nil {
		log.Printf("realtime: publish %s: %v", channel, err)
	}
}

// Subscribe 订阅频道。建立成功后立刻 fire 一次（首轮全量），
// 之后每收到一个信号 fire 一次。返回的取消函数恰好可调用一次语义
// 由 Registry 保证，这里自身也幂等。
func (b *Bus) Subscribe(channel string, fire func()) (CancelFunc, error) {
	ctx := context.Background()
	ps := b.rdb.Subscribe(ctx, channel)

	// 等 SUBSCRIBE 确认，确认前的消息本来就不该算
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	var cancelled atomic.Bool
	done := make(chan struct{})

	go func() {
		defer close(done)
		// 先发首轮：订阅已生效，此刻起的变更不会漏
		fire()
		for range ps.Channel() {
			fire()
		}
		if !cancelled.Load() && b.OnError != nil {
			b.OnError(channel, ErrSubscriptionClosed)
		}
	}()

	cancel := func() {
		if !cancelled.CompareAndSwap(false, true) {
			return
		}
		_ = ps.Close()
		<-done
	}
	return cancel, nil
}

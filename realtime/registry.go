package realtime

import (
	"errors"
	"sync"
)

// CancelFunc 取消一个活跃订阅
type CancelFunc func()

// ErrRegistryStopped Registry 已整体停掉（引擎 teardown 后）
var ErrRegistryStopped = errors.New("realtime: registry stopped")

// Registry 按 key 管理活跃订阅：同一个 key 最多一个订阅，
// 取消函数恰好被调用一次。发现回调和 teardown 可能并发，
// 注册/注销都走同一把锁，stopped 置位后 Register 直接拒绝，
// 晚到的发现回调不可能再漏挂一个订阅出去。
type Registry struct {
	mu      sync.Mutex
	subs    map[string]CancelFunc
	stopped bool
}

func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]CancelFunc)}
}

// Register 给 key 挂订阅。key 已存在时是 no-op（不会重复开监听）。
// open 在锁内执行：保证 open 和 stopped 判定对 teardown 原子。
func (r *Registry) Register(key string, open func() (CancelFunc, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return ErrRegistryStopped
	}
	if _, ok := r.subs[key]; ok {
		return nil
	}

	cancel, err := open()
	if err != nil {
		return err
	}
	if cancel == nil {
		cancel = func() {}
	}
	r.subs[key] = cancel
	return nil
}

// Unregister 取消并移除 key 的订阅；key 不存在时是 no-op。
func (r *Registry) Unregister(key string) {
	r.mu.Lock()
	cancel, ok := r.subs[key]
	if ok {
		delete(r.subs, key)
	}
	r.mu.Unlock()

	// 锁外执行 cancel：取消动作可能阻塞（等订阅 goroutine 退出），
	// 不能拿着注册锁等。
	if ok {
		cancel()
	}
}

// UnregisterAll 取消全部订阅并拒绝后续 Register。幂等，调两次不炸。
func (r *Registry) UnregisterAll() {
	r.mu.Lock()
	r.stopped = true
	cancels := make([]CancelFunc, 0, len(r.subs))
	for _, c := range r.subs {
		cancels = append(cancels, c)
	}
	r.subs = make(map[string]CancelFunc)
	r.mu.Unlock()

	for _, c := range cancels {
		c()
	}
}

// Has 是否已有 key 的订阅
func (r *Registry) Has(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.subs[key]
	return ok
}

// Keys 当前全部订阅 key（快照）
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.subs))
	for k := range r.subs {
		keys = append(keys, k)
	}
	return keys
}

// Len 活跃订阅数
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

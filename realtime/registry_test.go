package realtime

import (
	"errors"
	"testing"
)

func TestRegistry_RegisterSameKeyOnlyOpensOnce(t *testing.T) {
	r := NewRegistry()

	opens := 0
	open := func() (CancelFunc, error) {
		opens++
		return func() {}, nil
	}

	if err := r.Register("conv:a", open); err != nil {
		t.Fatalf("Register 1: %v", err)
	}
	if err := r.Register("conv:a", open); err != nil {
		t.Fatalf("Register 2: %v", err)
	}
	if opens != 1 {
		t.Fatalf("expected open called once, got %d", opens)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 sub, got %d", r.Len())
	}
}

func TestRegistry_RegisterOpenFailure(t *testing.T) {
	r := NewRegistry()

	boom := errors.New("boom")
	err := r.Register("conv:a", func() (CancelFunc, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if r.Has("conv:a") {
		t.Fatalf("failed open must not be registered")
	}
}

func TestRegistry_UnregisterCancelsExactlyOnce(t *testing.T) {
	r := NewRegistry()

	cancels := 0
	_ = r.Register("conv:a", func() (CancelFunc, error) {
		return func() { cancels++ }, nil
	})

	r.Unregister("conv:a")
	r.Unregister("conv:a") // 不存在时 no-op
	if cancels != 1 {
		t.Fatalf("expected cancel called once, got %d", cancels)
	}
	if r.Has("conv:a") {
		t.Fatalf("expected key removed")
	}
}

func TestRegistry_UnregisterAll(t *testing.T) {
	r := NewRegistry()

	cancels := 0
	for _, key := range []string{"conv:a", "conv:b", "event:c"} {
		_ = r.Register(key, func() (CancelFunc, error) {
			return func() { cancels++ }, nil
		})
	}

	r.UnregisterAll()
	r.UnregisterAll() // 幂等

	if cancels != 3 {
		t.Fatalf("expected 3 cancels, got %d", cancels)
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}

	// teardown 之后晚到的注册被拒绝
	err := r.Register("conv:late", func() (CancelFunc, error) {
		t.Fatalf("open must not run after stop")
		return nil, nil
	})
	if !errors.Is(err, ErrRegistryStopped) {
		t.Fatalf("expected ErrRegistryStopped, got %v", err)
	}
}

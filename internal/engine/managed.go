package engine

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Handle is the subset of ASREngine/TTSEngine that ManagedEngine needs to
// drive loading and unloading; both interfaces satisfy it structurally.
type Handle interface {
	Load(ctx context.Context) error
	Unload(ctx context.Context) error
	IsLoaded() bool
}

// CreateFunc constructs a fresh, unloaded engine instance for one engine
// id on one device.
type CreateFunc[T Handle] func(ctx context.Context) (T, error)

// Release returns an acquired handle to the pool. It must be called
// exactly once per successful Acquire, including on every error path, so
// a caller holding a scoped handle always decrements on exit.
type Release func()

// ManagedEngine is a scoped-acquisition wrapper around one lazily-loaded
// engine instance. Grounded on the teacher's
// pkg/webhook/circuit_breaker.go mutex-guarded state-machine idiom,
// generalized from a failure-counting breaker into a refcount+TTL-timer
// resource pool entry.
type ManagedEngine[T Handle] struct {
	mu sync.Mutex

	id       string
	createFn CreateFunc[T]
	ttl      time.Duration

	instance T
	loaded   bool
	refcount int
	timer    *time.Timer

	onRemoved func(id string)
}

func newManagedEngine[T Handle](id string, createFn CreateFunc[T], ttl time.Duration, onRemoved func(id string)) *ManagedEngine[T] {
	return &ManagedEngine[T]{id: id, createFn: createFn, ttl: ttl, onRemoved: onRemoved}
}

// Acquire loads the engine on first use, increments the refcount, cancels
// any pending idle-unload timer, and returns a Release to call when done.
func (m *ManagedEngine[T]) Acquire(ctx context.Context) (T, Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}

	if !m.loaded {
		inst, err := m.createFn(ctx)
		if err != nil {
			var zero T
			return zero, func() {}, err
		}
		if err := inst.Load(ctx); err != nil {
			var zero T
			return zero, func() {}, err
		}
		m.instance = inst
		m.loaded = true
	}

	m.refcount++
	inst := m.instance
	return inst, func() { m.release() }, nil
}

// release decrements the refcount and, if it reaches zero and ttl > 0,
// schedules an idle-unload timer. ttl <= 0 means "keep resident".
func (m *ManagedEngine[T]) release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refcount > 0 {
		m.refcount--
	}
	if m.refcount == 0 && m.ttl > 0 {
		m.timer = time.AfterFunc(m.ttl, m.idleUnload)
	}
}

// idleUnload fires from the TTL timer; it re-checks refcount under the
// lock before unloading, since a concurrent Acquire may have raced it.
func (m *ManagedEngine[T]) idleUnload() {
	_ = m.Unload(context.Background())
}

// Unload is a no-op if refcount > 0; otherwise it cancels the timer,
// unloads the underlying engine, and invokes the removed callback so the
// parent manager can drop the map entry.
func (m *ManagedEngine[T]) Unload(ctx context.Context) error {
	m.mu.Lock()
	if m.refcount > 0 {
		m.mu.Unlock()
		return nil
	}
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	wasLoaded := m.loaded
	inst := m.instance
	var zero T
	m.instance = zero
	m.loaded = false
	m.mu.Unlock()

	var err error
	if wasLoaded {
		err = inst.Unload(ctx)
	}
	if m.onRemoved != nil {
		m.onRemoved(m.id)
	}
	if err != nil {
		return fmt.Errorf("unload engine %q: %w", m.id, err)
	}
	return nil
}

// Refcount returns the current number of outstanding acquisitions.
func (m *ManagedEngine[T]) Refcount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refcount
}

// Force unloads the engine unconditionally, ignoring refcount. Used for
// administrative resets and the device-fallback transition, where
// in-flight callers are expected to fail their current attempt and retry
// against a freshly created instance.
func (m *ManagedEngine[T]) Force(ctx context.Context) {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	wasLoaded := m.loaded
	inst := m.instance
	var zero T
	m.instance = zero
	m.loaded = false
	m.refcount = 0
	m.mu.Unlock()

	if wasLoaded {
		_ = inst.Unload(ctx)
	}
	if m.onRemoved != nil {
		m.onRemoved(m.id)
	}
}

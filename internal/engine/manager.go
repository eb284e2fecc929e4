package engine

import (
	"context"
	"sync"
	"time"
)

// Factory constructs an engine instance for one engine id on one device.
type Factory[T Handle] func(ctx context.Context, engineID, device string) (T, error)

// Manager owns a keyed map of ManagedEngine wrappers, generic over any
// engine type satisfying Handle so the ASR and TTS subsystems share one
// refcount/TTL/fallback implementation instead of duplicating it per
// subsystem. Grounded on the teacher's
// internal/speech/registry.Registry[T] generic-over-T shape, combined
// with pkg/webhook/circuit_breaker.go's mutex-guarded state transitions
// for the device-fallback bookkeeping.
type Manager[T Handle] struct {
	mu sync.Mutex

	engines       map[string]*ManagedEngine[T]
	factory       Factory[T]
	ttl           time.Duration
	fallbackChain []string

	currentDevice    string
	triedCPUFallback bool
	failedModels     map[string]bool
}

// NewManager creates a Manager. fallbackChain lists engine ids tried in
// order after the primary engine fails; defaultDevice is the initial
// device preference (e.g. "cuda").
func NewManager[T Handle](factory Factory[T], ttl time.Duration, fallbackChain []string, defaultDevice string) *Manager[T] {
	return &Manager[T]{
		engines:       make(map[string]*ManagedEngine[T]),
		factory:       factory,
		ttl:           ttl,
		fallbackChain: fallbackChain,
		currentDevice: defaultDevice,
		failedModels:  make(map[string]bool),
	}
}

// Get returns the wrapper for engine_id, creating it if absent. Mapping
// creation is serialised by the manager lock; the manager lock is
// released before any wrapper-level load happens, so concurrent Gets for
// different engines never block each other.
func (m *Manager[T]) Get(engineID string) *ManagedEngine[T] {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w, ok := m.engines[engineID]; ok {
		return w
	}
	w := newManagedEngine[T](engineID, m.createFnFor(engineID), m.ttl, m.onRemoved)
	m.engines[engineID] = w
	return w
}

// createFnFor binds engineID into a CreateFunc that reads the current
// device preference at call time (not at registration time), so a device
// fallback transition affects the next load of any engine id.
func (m *Manager[T]) createFnFor(engineID string) CreateFunc[T] {
	return func(ctx context.Context) (T, error) {
		device := m.deviceSnapshot()
		return m.factory(ctx, engineID, device)
	}
}

func (m *Manager[T]) deviceSnapshot() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentDevice
}

// onRemoved drops an engine's map entry once ManagedEngine.Unload
// completes; registered as the wrapper's removed callback.
func (m *Manager[T]) onRemoved(engineID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.engines, engineID)
}

// Preload warms the cache for engine_id via an immediate acquire+release.
func (m *Manager[T]) Preload(ctx context.Context, engineID string) error {
	_, release, err := m.Get(engineID).Acquire(ctx)
	if err != nil {
		return err
	}
	release()
	return nil
}

// TryFallback marks failedEngineID as failed, force-unloads it, and
// either advances to the next untried engine in the fallback chain or
// attempts the CPU-device fallback transition. Returns true if the caller
// should retry with a fresh acquisition.
func (m *Manager[T]) TryFallback(ctx context.Context, failedEngineID string) bool {
	m.mu.Lock()
	m.failedModels[failedEngineID] = true
	w := m.engines[failedEngineID]
	m.mu.Unlock()

	if w != nil {
		w.Force(ctx)
	}
	m.mu.Lock()
	delete(m.engines, failedEngineID)
	m.mu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.fallbackChain {
		if !m.failedModels[id] {
			return true
		}
	}

	if m.currentDevice != "cpu" && !m.triedCPUFallback {
		m.currentDevice = "cpu"
		m.triedCPUFallback = true
		resident := make([]*ManagedEngine[T], 0, len(m.engines))
		for id, wrapper := range m.engines {
			resident = append(resident, wrapper)
			delete(m.engines, id)
		}
		m.failedModels = make(map[string]bool)
		m.mu.Unlock()
		for _, wrapper := range resident {
			wrapper.Force(ctx)
		}
		m.mu.Lock()
		return true
	}

	return false
}

// ForceUnload administratively unloads engine_id regardless of its
// refcount.
func (m *Manager[T]) ForceUnload(ctx context.Context, engineID string) {
	m.mu.Lock()
	w, ok := m.engines[engineID]
	if ok {
		delete(m.engines, engineID)
	}
	m.mu.Unlock()
	if ok {
		w.Force(ctx)
	}
}

// ResetDevicePreference clears device-fallback state back to the initial
// device and drops all failure bookkeeping. Existing loaded engines are
// left resident; callers that need a clean slate should ForceUnload first.
func (m *Manager[T]) ResetDevicePreference(defaultDevice string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentDevice = defaultDevice
	m.triedCPUFallback = false
	m.failedModels = make(map[string]bool)
}

// FallbackChain returns the configured fallback engine ids, in order.
func (m *Manager[T]) FallbackChain() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	chain := make([]string, len(m.fallbackChain))
	copy(chain, m.fallbackChain)
	return chain
}

// CurrentDevice returns the manager's current device preference.
func (m *Manager[T]) CurrentDevice() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentDevice
}

// ListLoaded returns the engine ids that currently have a wrapper in the
// pool, for administrative/discovery endpoints. A wrapper is present from
// its first Get until it is unloaded, whether or not its engine has
// loaded yet.
func (m *Manager[T]) ListLoaded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.engines))
	for id := range m.engines {
		ids = append(ids, id)
	}
	return ids
}

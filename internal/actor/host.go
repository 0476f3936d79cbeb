package actor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/TorratDev/Grace/internal/domain"
	logpkg "github.com/TorratDev/Grace/pkg/log"
)

// Host places and dispatches virtual actors. One live instance per
// address; turns on an instance execute one at a time.
type Host struct {
	logger  logpkg.Logger
	idleTTL time.Duration

	mu        sync.Mutex
	factories map[Kind]Factory
	instances map[Address]*instance

	stopOnce sync.Once
	stopCh   chan struct{}
}

type instance struct {
	turn      sync.Mutex // serializes turns
	actor     Actor
	activated bool
	lastUsed  time.Time
}

// DefaultIdleTTL is how long an untouched instance survives before the
// janitor evicts it.
const DefaultIdleTTL = 10 * time.Minute

// NewHost builds a host. idleTTL <= 0 selects the default.
func NewHost(logger logpkg.Logger, idleTTL time.Duration) *Host {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Host{
		logger:    logger.With(logpkg.Component("actor-host")),
		idleTTL:   idleTTL,
		factories: map[Kind]Factory{},
		instances: map[Address]*instance{},
	}
}

// Register installs the factory for a kind. Must be called before the
// first Invoke for that kind.
func (h *Host) Register(kind Kind, factory Factory) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.factories[kind] = factory
}

func (h *Host) lookup(addr Address) (*instance, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if inst, ok := h.instances[addr]; ok {
		inst.lastUsed = time.Now()
		return inst, nil
	}
	factory, ok := h.factories[addr.Kind]
	if !ok {
		return nil, fmt.Errorf("actor: no factory registered for kind %s", addr.Kind)
	}
	inst := &instance{actor: factory(addr.ID), lastUsed: time.Now()}
	h.instances[addr] = inst
	return inst, nil
}

// Invoke runs one turn against the addressed actor. The turn body runs
// with the instance lock held, so two turns on the same address never
// overlap. op names the operation for the duration log.
func (h *Host) Invoke(ctx context.Context, addr Address, op string, fn func(ctx context.Context, a Actor) error) error {
	inst, err := h.lookup(addr)
	if err != nil {
		return err
	}

	inst.turn.Lock()
	defer inst.turn.Unlock()

	// Pre hook: correlation capture and turn-scope logging.
	started := time.Now()
	correlation := domain.CorrelationFromContext(ctx)
	turnLogger := h.logger.With(
		logpkg.Str("actor", addr.String()),
		logpkg.Operation(op),
	)
	if correlation != "" {
		turnLogger = turnLogger.With(logpkg.Correlation(correlation))
	}

	// A disposed actor reactivates from durable state before this turn.
	if d, ok := inst.actor.(Disposable); ok && inst.activated && d.Disposed() {
		inst.activated = false
	}
	if !inst.activated {
		if err := inst.actor.Activate(ctx); err != nil {
			turnLogger.Error("activate failed", logpkg.Err(err))
			return fmt.Errorf("activate %s: %w", addr, err)
		}
		inst.activated = true
	}

	err = fn(ctx, inst.actor)

	// Post hook: duration logging.
	turnLogger.Debug("turn complete", logpkg.Duration("took", time.Since(started)))
	inst.lastUsed = time.Now()
	return err
}

// Deliver routes a reminder callback into the addressed actor under the
// same turn discipline as a regular call.
func (h *Host) Deliver(ctx context.Context, addr Address, name string, payload []byte, due time.Time, period time.Duration) error {
	return h.Invoke(ctx, addr, "reminder:"+name, func(ctx context.Context, a Actor) error {
		recv, ok := a.(ReminderReceiver)
		if !ok {
			return fmt.Errorf("actor %s does not accept reminders", addr)
		}
		return recv.ReceiveReminder(ctx, name, payload, due, period)
	})
}

// Evict drops the instance for an address, if present. The next call
// re-materializes and re-activates it.
func (h *Host) Evict(addr Address) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.instances, addr)
}

// StartJanitor launches idle eviction until ctx is cancelled.
func (h *Host) StartJanitor(ctx context.Context) {
	h.stopCh = make(chan struct{})
	go func() {
		ticker := time.NewTicker(h.idleTTL / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.stopCh:
				return
			case <-ticker.C:
				h.evictIdle()
			}
		}
	}()
}

// Stop halts the janitor.
func (h *Host) Stop() {
	h.stopOnce.Do(func() {
		if h.stopCh != nil {
			close(h.stopCh)
		}
	})
}

func (h *Host) evictIdle() {
	cutoff := time.Now().Add(-h.idleTTL)
	h.mu.Lock()
	defer h.mu.Unlock()
	for addr, inst := range h.instances {
		if inst.lastUsed.Before(cutoff) && inst.turn.TryLock() {
			inst.turn.Unlock()
			delete(h.instances, addr)
		}
	}
}

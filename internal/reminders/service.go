package reminders

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/TorratDev/Grace/internal/actor"
	pebblestore "github.com/TorratDev/Grace/internal/storage/pebble"
	logpkg "github.com/TorratDev/Grace/pkg/log"
)

// record is the durable form of one reminder.
//
// Keyspace:
// - rem/{kind}/{id}/{name}            -> record JSON
// - remidx/{due_be8}/{kind}/{id}/{name} -> empty (due-time scan index)
type record struct {
	Kind     string `json:"kind"`
	ActorID  string `json:"actorId"`
	Name     string `json:"name"`
	Payload  []byte `json:"payload"`
	DueAtMs  int64  `json:"dueAtMs"`
	PeriodMs int64  `json:"periodMs"` // 0 marks a one-shot reminder
}

func recordKey(addr actor.Address, name string) []byte {
	return []byte("rem/" + string(addr.Kind) + "/" + addr.ID + "/" + name)
}

func indexKey(dueMs int64, addr actor.Address, name string) []byte {
	k := make([]byte, 0, 7+8+len(addr.Kind)+len(addr.ID)+len(name)+3)
	k = append(k, "remidx/"...)
	var be [8]byte
	binary.BigEndian.PutUint64(be[:], uint64(dueMs))
	k = append(k, be[:]...)
	k = append(k, '/')
	k = append(k, addr.Kind...)
	k = append(k, '/')
	k = append(k, addr.ID...)
	k = append(k, '/')
	k = append(k, name...)
	return k
}

// Service registers and delivers reminders.
type Service struct {
	db     *pebblestore.DB
	host   *actor.Host
	logger logpkg.Logger

	scanEvery time.Duration
	now       func() time.Time
}

// New builds the service. scanEvery <= 0 selects a 500ms scan interval.
func New(db *pebblestore.DB, host *actor.Host, logger logpkg.Logger, scanEvery time.Duration) *Service {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	if scanEvery <= 0 {
		scanEvery = 500 * time.Millisecond
	}
	return &Service{
		db:        db,
		host:      host,
		logger:    logger.With(logpkg.Component("reminders")),
		scanEvery: scanEvery,
		now:       time.Now,
	}
}

// Register durably schedules a named reminder for an actor. Registering
// the same (actor, name) again replaces the previous schedule. A zero
// period marks a one-shot reminder.
func (s *Service) Register(ctx context.Context, addr actor.Address, name string, payload []byte, dueIn, period time.Duration) error {
	if name == "" {
		return errors.New("reminders: name is required")
	}
	dueAt := s.now().Add(dueIn).UnixMilli()
	rec := record{
		Kind:     string(addr.Kind),
		ActorID:  addr.ID,
		Name:     name,
		Payload:  payload,
		DueAtMs:  dueAt,
		PeriodMs: period.Milliseconds(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal reminder: %w", err)
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	// Replace any previous schedule's index entry.
	if prev, gerr := s.db.Get(recordKey(addr, name)); gerr == nil {
		var old record
		if json.Unmarshal(prev, &old) == nil {
			if err := batch.Delete(indexKey(old.DueAtMs, addr, name), nil); err != nil {
				return fmt.Errorf("drop stale index: %w", err)
			}
		}
	}
	if err := batch.Set(recordKey(addr, name), data, nil); err != nil {
		return fmt.Errorf("write reminder: %w", err)
	}
	if err := batch.Set(indexKey(dueAt, addr, name), nil, nil); err != nil {
		return fmt.Errorf("write reminder index: %w", err)
	}
	if err := s.db.CommitBatch(ctx, batch); err != nil {
		return fmt.Errorf("commit reminder: %w", err)
	}
	return nil
}

// Unregister removes a reminder if present.
func (s *Service) Unregister(ctx context.Context, addr actor.Address, name string) error {
	data, err := s.db.Get(recordKey(addr, name))
	if err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load reminder: %w", err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("unmarshal reminder: %w", err)
	}

	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Delete(recordKey(addr, name), nil); err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	if err := batch.Delete(indexKey(rec.DueAtMs, addr, name), nil); err != nil {
		return fmt.Errorf("delete reminder index: %w", err)
	}
	if err := s.db.CommitBatch(ctx, batch); err != nil {
		return fmt.Errorf("commit unregister: %w", err)
	}
	return nil
}

// IsRegistered reports whether a reminder is pending.
func (s *Service) IsRegistered(addr actor.Address, name string) (bool, error) {
	return s.db.Has(recordKey(addr, name))
}

// Run scans for due reminders until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.scanEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("reminder sweep failed", logpkg.Err(err))
			}
		}
	}
}

// Sweep delivers every reminder due at or before now. Exposed so tests
// and the run loop share one deterministic path.
func (s *Service) Sweep(ctx context.Context) error {
	nowMs := s.now().UnixMilli()
	prefix := []byte("remidx/")
	upper := indexKey(nowMs+1, actor.Address{}, "")

	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return fmt.Errorf("open index iterator: %w", err)
	}

	type due struct {
		addr actor.Address
		name string
	}
	var dueList []due
	for it.First(); it.Valid(); it.Next() {
		key := it.Key()
		// remidx/{be8}/{kind}/{id}/{name}
		rest := key[len(prefix)+8+1:]
		parts := splitN(rest, '/', 3)
		if len(parts) != 3 {
			continue
		}
		dueList = append(dueList, due{
			addr: actor.Address{Kind: actor.Kind(parts[0]), ID: parts[1]},
			name: parts[2],
		})
	}
	if cerr := it.Close(); cerr != nil {
		return fmt.Errorf("close iterator: %w", cerr)
	}

	for _, d := range dueList {
		if err := s.fire(ctx, d.addr, d.name); err != nil {
			// Reminder failures are logged and swallowed; the reminder is
			// not rescheduled.
			s.logger.Error("reminder delivery failed",
				logpkg.Str("actor", d.addr.String()),
				logpkg.Str("reminder", d.name),
				logpkg.Err(err))
		}
	}
	return nil
}

func (s *Service) fire(ctx context.Context, addr actor.Address, name string) error {
	data, err := s.db.Get(recordKey(addr, name))
	if err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			// Unregistered between scan and fire.
			return nil
		}
		return fmt.Errorf("load reminder: %w", err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("unmarshal reminder: %w", err)
	}

	due := time.UnixMilli(rec.DueAtMs)
	period := time.Duration(rec.PeriodMs) * time.Millisecond

	// Remove (or re-arm) the schedule before delivery so a failing
	// handler cannot cause a hot redelivery loop.
	batch := s.db.NewBatch()
	if err := batch.Delete(indexKey(rec.DueAtMs, addr, name), nil); err != nil {
		batch.Close()
		return fmt.Errorf("drop index: %w", err)
	}
	if rec.PeriodMs > 0 {
		rec.DueAtMs = s.now().Add(period).UnixMilli()
		rearm, merr := json.Marshal(rec)
		if merr != nil {
			batch.Close()
			return fmt.Errorf("marshal re-arm: %w", merr)
		}
		if err := batch.Set(recordKey(addr, name), rearm, nil); err != nil {
			batch.Close()
			return fmt.Errorf("re-arm reminder: %w", err)
		}
		if err := batch.Set(indexKey(rec.DueAtMs, addr, name), nil, nil); err != nil {
			batch.Close()
			return fmt.Errorf("re-arm index: %w", err)
		}
	} else {
		if err := batch.Delete(recordKey(addr, name), nil); err != nil {
			batch.Close()
			return fmt.Errorf("drop reminder: %w", err)
		}
	}
	if err := s.db.CommitBatch(ctx, batch); err != nil {
		batch.Close()
		return fmt.Errorf("commit fire: %w", err)
	}
	batch.Close()

	return s.host.Deliver(ctx, addr, name, rec.Payload, due, period)
}

func splitN(b []byte, sep byte, n int) []string {
	out := make([]string, 0, n)
	start := 0
	for i := 0; i < len(b) && len(out) < n-1; i++ {
		if b[i] == sep {
			out = append(out, string(b[start:i]))
			start = i + 1
		}
	}
	out = append(out, string(b[start:]))
	return out
}

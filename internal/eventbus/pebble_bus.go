package eventbus

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/TorratDev/Grace/internal/storage/pebble"
	"github.com/TorratDev/Grace/pkg/id"
	logpkg "github.com/TorratDev/Grace/pkg/log"
)

// PebbleBus appends envelopes to a durable per-topic log and fans out to
// in-process subscribers. Appends are serialized per bus so a topic's
// sequence numbers equal its publish order.
type PebbleBus struct {
	db     *pebblestore.DB
	logger logpkg.Logger
	gen    *id.Source

	mu      sync.Mutex
	lastSeq map[string]uint64 // pubsub/topic -> last assigned sequence
	subs    map[string][]*subscriber

	closed bool
}

type subscriber struct {
	ch     chan Envelope
	filter celFilter
}

// NewPebbleBus opens the bus over the shared database.
func NewPebbleBus(db *pebblestore.DB, logger logpkg.Logger) *PebbleBus {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	return &PebbleBus{
		db:      db,
		logger:  logger.With(logpkg.Component("eventbus")),
		gen:     id.NewGenerator(),
		lastSeq: map[string]uint64{},
		subs:    map[string][]*subscriber{},
	}
}

func topicKey(pubsub, topic string) string { return pubsub + "/" + topic }

// Publish implements Bus. The envelope is stamped with a sortable event
// id, appended durably, then offered to subscribers without blocking.
func (b *PebbleBus) Publish(ctx context.Context, pubsub, topic string, env Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("eventbus: closed")
	}

	env.stamp(b.gen)
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	tk := topicKey(pubsub, topic)
	seq, ok := b.lastSeq[tk]
	if !ok {
		if meta, gerr := b.db.Get(keyTopicMeta(pubsub, topic)); gerr == nil && len(meta) >= 8 {
			seq = binary.BigEndian.Uint64(meta[:8])
		}
	}
	seq++

	batch := b.db.NewBatch()
	defer batch.Close()
	rec := encodeRecord(time.Now().UnixMilli(), payload)
	if err := batch.Set(keyTopicEntry(pubsub, topic, seq), rec, nil); err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], seq)
	if err := batch.Set(keyTopicMeta(pubsub, topic), meta[:], nil); err != nil {
		return fmt.Errorf("append meta: %w", err)
	}
	if err := b.db.CommitBatch(ctx, batch); err != nil {
		return fmt.Errorf("commit publish: %w", err)
	}
	b.lastSeq[tk] = seq

	for _, sub := range b.subs[tk] {
		if !sub.filter.Eval(env) {
			continue
		}
		select {
		case sub.ch <- env:
		default:
			// Slow subscriber; the durable log remains the source of truth.
			b.logger.Warn("dropping envelope for slow subscriber",
				logpkg.Str("topic", topic), logpkg.Str("eventId", env.EventID))
		}
	}
	return nil
}

// Subscribe registers an in-process consumer for a topic. filterExpr is an
// optional CEL expression over {tag, event_type, correlation_id, ts_ms,
// json, properties};
// an empty expression passes everything. The returned cancel func must be
// called to release the subscription.
func (b *PebbleBus) Subscribe(pubsub, topic, filterExpr string, buffer int) (<-chan Envelope, func(), error) {
	f, err := newCELFilter(filterExpr)
	if err != nil {
		return nil, nil, fmt.Errorf("compile filter: %w", err)
	}
	if buffer <= 0 {
		buffer = 64
	}
	sub := &subscriber{ch: make(chan Envelope, buffer), filter: f}

	tk := topicKey(pubsub, topic)
	b.mu.Lock()
	b.subs[tk] = append(b.subs[tk], sub)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[tk]
		for i, s := range list {
			if s == sub {
				b.subs[tk] = append(list[:i], list[i+1:]...)
				close(sub.ch)
				return
			}
		}
	}
	return sub.ch, cancel, nil
}

// ReadFrom scans the durable log for a topic starting at fromSeq
// (exclusive), returning up to max decoded envelopes and the last sequence
// read. Corrupt records are skipped with a warning.
func (b *PebbleBus) ReadFrom(pubsub, topic string, fromSeq uint64, max int) ([]Envelope, uint64, error) {
	if max <= 0 {
		max = 100
	}
	lower := keyTopicEntry(pubsub, topic, fromSeq+1)
	upper := keyTopicEntry(pubsub, topic, ^uint64(0))
	it, err := b.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, fromSeq, fmt.Errorf("open iterator: %w", err)
	}
	defer it.Close()

	var out []Envelope
	last := fromSeq
	for it.First(); it.Valid() && len(out) < max; it.Next() {
		key := it.Key()
		if len(key) < 8 {
			continue
		}
		last = binary.BigEndian.Uint64(key[len(key)-8:])
		_, payload, ok := decodeRecord(it.Value())
		if !ok {
			b.logger.Warn("skipping corrupt bus record", logpkg.Str("topic", topic), logpkg.Int64("seq", int64(last)))
			continue
		}
		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			b.logger.Warn("skipping undecodable bus record", logpkg.Str("topic", topic), logpkg.Err(err))
			continue
		}
		out = append(out, env)
	}
	return out, last, nil
}

// Close releases subscriber channels. The durable log is owned by the
// database and survives.
func (b *PebbleBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, list := range b.subs {
		for _, sub := range list {
			close(sub.ch)
		}
	}
	b.subs = map[string][]*subscriber{}
	return nil
}

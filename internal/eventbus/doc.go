// Package eventbus publishes domain-event envelopes to named topics with
// at-least-once, best-effort-ordered delivery per publisher.
//
// Two backends are provided. The default Pebble backend appends every
// envelope to a durable per-topic log (crc-checked records, big-endian
// sequence keys) and fans out to in-process subscribers, which may narrow
// their feed with a CEL filter expression over envelope fields. The Redis
// backend publishes the JSON envelope to a channel and forgets it, which
// matches the no-ack bus contract when an external broker is preferred.
package eventbus

// Package statestore implements the durable per-actor key/value contract
// entity actors persist through. Each actor owns a small set of keys
// (typically just its ordered event list) and the store offers single-key
// linearizability per actor via Pebble's write path.
package statestore

// Package runtime wires the platform services for a single-node Grace
// instance: the Pebble keyspace, state store, event bus, memory cache,
// actor host with every entity factory registered, reminder scheduler,
// read-model indexes, and the resolver/pipeline front door. All handles
// are constructor dependencies; nothing lives in package-level state.
package runtime

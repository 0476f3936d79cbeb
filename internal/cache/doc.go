// Package cache wraps a process-local, short-TTL map used to short-circuit
// existence checks and name resolution without consulting an actor. It is
// never authoritative: unknown answers and contradictions fall through to
// the owning actor.
package cache

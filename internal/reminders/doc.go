// Package reminders provides durable, named, per-actor timers. A reminder
// is persisted with a due-time index entry; a scheduler loop scans the
// index and re-enters the owning actor through the host's reminder
// delivery path, under the same turn discipline as regular calls.
// One-shot reminders (zero period) are removed once fired; failures are
// logged and swallowed without rescheduling.
package reminders

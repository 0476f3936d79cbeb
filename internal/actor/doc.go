// Package actor implements the virtual-actor host: at most one live
// instance per (kind, id) address in the process, with calls executing one
// at a time per instance. The host materializes an actor on first use via
// its Activate hook, brackets every turn with correlation capture and
// duration logging, and re-runs Activate before the next turn whenever an
// actor marked itself disposed after an uncertain failure.
package actor

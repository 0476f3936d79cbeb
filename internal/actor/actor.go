package actor

import (
	"context"
	"time"
)

// Kind names an actor type.
type Kind string

// Grace's actor kinds.
const (
	KindOwner            Kind = "Owner"
	KindOrganization     Kind = "Organization"
	KindRepository       Kind = "Repository"
	KindBranch           Kind = "Branch"
	KindReference        Kind = "Reference"
	KindDirectoryVersion Kind = "DirectoryVersion"
	KindRepositoryName   Kind = "RepositoryName"
)

// Address identifies a virtual actor cluster-wide.
type Address struct {
	Kind Kind
	ID   string
}

func (a Address) String() string { return string(a.Kind) + "/" + a.ID }

// Actor is the minimal contract the host manages. Activate rebuilds
// in-memory state from durable storage; it runs on first use and again
// after the actor marks itself disposed.
type Actor interface {
	Activate(ctx context.Context) error
}

// Disposable is implemented by actors that can poison themselves when a
// failure left their in-memory state uncertain.
type Disposable interface {
	Disposed() bool
}

// ReminderReceiver is implemented by actors that accept timer callbacks.
// A zero period marks a one-shot reminder.
type ReminderReceiver interface {
	ReceiveReminder(ctx context.Context, name string, payload []byte, due time.Time, period time.Duration) error
}

// Factory constructs a fresh (not yet activated) actor instance for an id.
type Factory func(id string) Actor

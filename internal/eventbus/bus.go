package eventbus

import "context"

// Bus is the publish contract consumed by entity actors. Delivery is
// at-least-once and best-effort ordered per publisher; the caller does not
// await subscriber acknowledgement.
type Bus interface {
	Publish(ctx context.Context, pubsub, topic string, env Envelope) error
	Close() error
}

package actor

import (
	"context"
	"fmt"
)

// Call invokes one typed turn against the addressed actor and returns the
// result. It is the proxy surface other components use to reach actors
// without holding instance references.
func Call[T Actor, R any](ctx context.Context, h *Host, addr Address, op string, fn func(ctx context.Context, a T) (R, error)) (R, error) {
	var out R
	err := h.Invoke(ctx, addr, op, func(ctx context.Context, a Actor) error {
		typed, ok := a.(T)
		if !ok {
			return fmt.Errorf("actor %s has unexpected type %T", addr, a)
		}
		var ferr error
		out, ferr = fn(ctx, typed)
		return ferr
	})
	return out, err
}

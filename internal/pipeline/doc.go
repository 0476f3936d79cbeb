// Package pipeline is the generic front door for every mutating
// endpoint: validations run concurrently and fail on the first error in
// declaration order, the target entity id is resolved, the command is
// dispatched to the entity actor, and the reply is shaped with resolved
// ancestor ids on success or the structured error body on failure.
// Queries follow the same shape minus dispatch, bounded by maxCount.
package pipeline

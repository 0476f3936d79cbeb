// Package entity implements Grace's event-sourced entity actors: Owner,
// Organization, Repository, Branch, Reference, DirectoryVersion, and the
// RepositoryName lookup actor.
//
// Every actor follows one skeleton: the current read-model (dto) is a
// pure fold of the actor's ordered event list, both rebuilt on Activate
// by replaying the list retrieved from the state store. Handle rejects
// reused correlation ids, guards Create/non-Create against the entity's
// existence, translates the command into an event (performing cross-actor
// calls for cascading effects), folds the event into the dto, appends it,
// persists the list, and publishes the envelope. A persistence or publish
// failure poisons the actor so the next turn reloads from durable state.
package entity

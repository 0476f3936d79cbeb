// Package readmodel maintains small derived indexes over the shared
// keyspace: references by (branch, type, recency) and branches by
// repository, plus name-to-id bindings for owners, organizations, and
// branches. Entity actors update these after persisting their own events;
// the branch actor reads them on Activate to repair its unpersisted
// latest-reference pointers, and parents read them to enumerate children
// during cascading deletion.
package readmodel

// Package resolver maps owner/organization/repository/branch names to
// their canonical ids, preferring a provided id over a name at every
// level. Lookups consult the short-TTL memory cache first, then the name
// indexes and the RepositoryName lookup actor; the cache is never
// authoritative.
package resolver

// Package view keeps derived, in-memory caches in sync with a repository.
//
// A [Cache] wraps every entity of a source set into a view value and follows
// the set's Added, Updated, Removed and Refreshed events. Since event delivery
// is synchronous, a read issued after a command returns already reflects
// every event that command caused.
//
// [Watch] registers field-scoped callbacks that fire only when an update
// changes the watched field. A [Projection] is an ordered, filtered sequence
// of the cached values that is recomputed lazily after a change.
package view

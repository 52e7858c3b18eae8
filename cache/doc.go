// Package cache provides a byte-bounded LRU for whole blobs.
//
// It sits in front of remote blob stores so that a bundle which was released
// and requested again does not go back over the network. Entries are
// immutable: callers must not modify returned slices.
//
// When a resource.Controller is supplied, cached bytes are charged against its
// memory budget and an entry that would exceed the budget is simply not
// cached.
package cache

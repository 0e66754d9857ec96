// Package cachestore implements the cross-run, content-addressed setup
// cache. Entries are immutable once written under a key; a new checksum of
// a referenced input file yields a different key, never a mutation. Size
// management is delegated to an external retention collaborator.
package cachestore

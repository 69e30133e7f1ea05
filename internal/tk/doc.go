// Package tk contains the kernel: the single goroutine that owns the graph store.
//
// Transport events, the broadcast timer, and API requests
// are all handled on the kernel's main loop,
// so the store never needs a lock.
package tk

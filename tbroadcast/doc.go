// Package tbroadcast announces the local node's direct connections to the network.
//
// The [Broadcaster] builds and sends connection-info messages.
// An [IntervalPolicy] decides how long to wait between periodic sends;
// the kernel owns the timer so that sends are serialized with every other event.
package tbroadcast

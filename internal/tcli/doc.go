// Package tcli holds the topoview command:
// flag and config file parsing, logger setup,
// and wiring a transport, viewer, and renderers together.
package tcli

// Package tpubsub contains the single-writer, many-reader stream
// used to publish kernel frames to renderers.
//
// Each reader walks the stream at its own pace.
// A reader that stops walking pins every later value in memory,
// so readers must either keep up or drop their reference.
package tpubsub

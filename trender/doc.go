// Package trender connects a viewer's frame stream to renderers.
//
// A [Renderer] receives whole graphs and individual particles.
// [Follow] drives a renderer from a [Source] until its context is canceled,
// honoring a [Switch] that turns drawing on and off.
//
// The tterm and tweb subpackages contain concrete renderers.
package trender

package topoview

import "github.com/gordian-engine/topoview/internal/tk"

// ErrStopped is returned by [*Viewer] methods
// after the viewer's context has been canceled
// or its transport has been torn down.
var ErrStopped = tk.ErrStopped

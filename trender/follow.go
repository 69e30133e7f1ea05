package trender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gordian-engine/topoview/tgraph"
)

// Follow renders src's current table,
// then every changed table and every particle published afterward,
// until ctx is canceled.
//
// If sw is nil, drawing is always on.
// Otherwise, frames arriving while sw is off are consumed without drawing,
// and turning sw back on redraws the latest table.
//
// Follow always returns a non-nil error:
// the context's cause, or the error from the initial subscription.
func Follow(ctx context.Context, log *slog.Logger, src Source, r Renderer, sw *Switch) error {
	if sw == nil {
		sw = NewSwitch(true)
	}

	self := src.Address()
	t, s, err := src.Frames(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to frames: %w", err)
	}

	draw := func(t *tgraph.Table) {
		// Transform on every hand-off,
		// so renderers never share slices with each other or with earlier calls.
		r.Render(tgraph.Transform(t), tgraph.StatusOf(t, self))
	}

	changedCh := sw.Changed()
	if sw.On() {
		draw(t)
	}

	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)

		case <-changedCh:
			changedCh = sw.Changed()
			if sw.On() {
				log.Debug("Drawing enabled")
				draw(t)
			} else {
				log.Debug("Drawing disabled")
			}

		case <-s.Ready:
			f := s.Val
			s = s.Next
			t = f.Table

			if !sw.On() {
				continue
			}
			if f.Changed {
				draw(t)
			}
			for _, e := range f.Particles {
				r.EmitParticle(e)
			}
		}
	}
}

package tgraph

// Frame is published by the kernel every time
// something renderers care about has happened.
type Frame struct {
	// The table after the event.
	Table *Table

	// Whether Table differs from the previous frame's table.
	Changed bool

	// Edges that should show a particle for this event.
	Particles []Edge

	// The local node's address,
	// so renderers can show a status line.
	Self Address
}

// Status is the local node's summary line.
type Status struct {
	Address     Address `json:"address"`
	Connections int     `json:"connections"`
	Components  int     `json:"components"`
}

// StatusOf returns the Status for self within t.
func StatusOf(t *Table, self Address) Status {
	return Status{
		Address:     self,
		Connections: t.Connections(self),
		Components:  Stats(t).Components,
	}
}

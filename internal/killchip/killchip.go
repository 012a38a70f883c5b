// Package killchip implements the process-wide cooperative-cancellation flag
// used by the grid orchestrator and the GBDT trainer.
package killchip

import "sync/atomic"

// Chip is a process-wide atomic flag. Trainers poll IsTripped at well defined
// boundaries (between grid items, between rounds, at each node-expansion
// iteration) rather than being interrupted asynchronously.
type Chip struct {
	tripped atomic.Bool
}

// New returns an untripped Chip.
func New() *Chip {
	return &Chip{}
}

// Trip arms the chip. Safe to call multiple times and from any goroutine.
func (c *Chip) Trip() {
	c.tripped.Store(true)
}

// IsTripped reports whether Trip has been called.
func (c *Chip) IsTripped() bool {
	if c == nil {
		return false
	}
	return c.tripped.Load()
}

package binstats

import (
	"sync"

	"github.com/wlattner/gbt/bin"
)

// Pool hands out zeroed Stats buffers sized for a fixed set of per-feature
// bin counts, and accepts them back for reuse. It realizes §5's "Vec<BinStats>
// guarded by a mutex; scoped check-out returns the buffer on drop" using a
// sync.Pool for the free list, which is itself safe for concurrent use. The
// nBins metadata is set at construction and only read afterwards, so the mu
// field is not locked anywhere.
type Pool struct {
	nBins []int
	mu    sync.Mutex
	pool  sync.Pool
}

// NewPool returns a Pool that hands out Stats shaped for nBins (one entry
// per feature).
func NewPool(nBins []int) *Pool {
	p := &Pool{nBins: append([]int(nil), nBins...)}
	p.pool.New = func() interface{} {
		return New(p.nBins)
	}
	return p
}

// NewPoolForMatrix returns a Pool shaped for m's per-feature bin counts, the
// constructor the tree trainer uses: one pool per call to Fit, shared by
// every node's checkout/return during that tree's growth.
func NewPoolForMatrix(m bin.Matrix) *Pool {
	return NewPool(nBinsOf(m))
}

// Get checks out a zeroed Stats buffer.
func (p *Pool) Get() *Stats {
	s := p.pool.Get().(*Stats)
	s.Reset()
	return s
}

// Put returns a Stats buffer for reuse. Callers must not retain a reference
// to s after calling Put (the "on drop" discipline from §5).
func (p *Pool) Put(s *Stats) {
	if s == nil {
		return
	}
	p.pool.Put(s)
}

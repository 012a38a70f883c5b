// Package workerpool provides a bounded-concurrency fan-out helper so
// bin-stats chunks and per-feature split searches share the same
// fan-out/fan-in shape instead of each hand-rolling channels.
package workerpool

import "golang.org/x/sync/errgroup"

// Run executes fn once for each index in [0, n) using at most nWorkers
// goroutines, and blocks until all calls complete. nWorkers <= 1 runs
// sequentially in the calling goroutine rather than spinning up goroutines
// for no benefit. fn takes no error return because every caller in this
// module is a pure reduction step; the errgroup is used purely for its
// bounded-fan-out worker semantics, via SetLimit, rather than for error
// propagation.
func Run(n, nWorkers int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if nWorkers < 1 {
		nWorkers = 1
	}
	if nWorkers == 1 || n == 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	if nWorkers > n {
		nWorkers = n
	}

	var g errgroup.Group
	g.SetLimit(nWorkers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

// Chunks splits [0, n) into at most nChunks contiguous ranges of equal size
// (the last one shorter when n is not a multiple), using a fixed
// chunk_size = ceil(n / n_threads) so that parallel reductions are
// reproducible for a given worker count.
func Chunks(n, nChunks int) [][2]int {
	if nChunks < 1 {
		nChunks = 1
	}
	if nChunks > n {
		nChunks = n
	}
	if n == 0 {
		return nil
	}
	chunkSize := (n + nChunks - 1) / nChunks
	var out [][2]int
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

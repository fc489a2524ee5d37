package parallel

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Range is a half-open index interval [Begin, End).
type Range struct {
	Begin int
	End   int
}

// Len returns the number of indices in the range.
func (r Range) Len() int {
	return r.End - r.Begin
}

// Pool runs work over contiguous, disjoint partitions of an index range.
//
// Every Run call forks one goroutine per partition and joins them before
// returning, so consecutive Run calls are separated by a barrier: work
// started by a Run call observes every write made by the previous one.
// Code executed by the caller between two Run calls is the exclusive,
// single-threaded section.
type Pool struct {
	workers int
}

// NewPool creates a pool that splits work into at most workers partitions.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{workers: workers}
}

// Workers returns the max number of partitions processed concurrently.
func (p *Pool) Workers() int {
	return p.workers
}

// Partition splits [begin, end) into at most parts contiguous chunks of
// equal size; the last chunk also receives the remainder. Fewer chunks are
// returned when the range holds less than parts indices.
func Partition(begin, end, parts int) []Range {
	n := end - begin
	if n <= 0 {
		return nil
	}
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = n
	}

	chunkSize := n / parts
	out := make([]Range, parts)
	for i := 0; i < parts; i++ {
		out[i].Begin = begin + i*chunkSize
		out[i].End = out[i].Begin + chunkSize
	}
	out[parts-1].End = end
	return out
}

// Run invokes fn once per partition of [begin, end) using all pool workers.
func (p *Pool) Run(begin, end int, fn func(r Range) error) error {
	return p.RunN(p.workers, begin, end, fn)
}

// RunN invokes fn once per partition of [begin, end) splitting the range
// into at most workers partitions. A single partition runs on the calling
// goroutine. RunN returns after all partitions complete and reports the
// first error encountered.
func (p *Pool) RunN(workers, begin, end int, fn func(r Range) error) error {
	return p.runChunks(Partition(begin, end, p.clamp(workers)), func(_ int, r Range) error {
		return fn(r)
	})
}

func (p *Pool) clamp(workers int) int {
	if workers > p.workers {
		return p.workers
	}
	return workers
}

func (p *Pool) runChunks(chunks []Range, fn func(index int, r Range) error) error {
	switch len(chunks) {
	case 0:
		return nil
	case 1:
		return fn(0, chunks[0])
	}

	var g errgroup.Group
	for index, chunk := range chunks {
		index, chunk := index, chunk
		g.Go(func() error {
			return fn(index, chunk)
		})
	}
	return g.Wait()
}

// Do invokes fn once per partition of [begin, end) splitting the range into
// at most workers partitions. It is the RunN variant for work that cannot
// fail.
func (p *Pool) Do(workers, begin, end int, fn func(r Range)) {
	p.forkJoin(Partition(begin, end, p.clamp(workers)), func(_ int, r Range) {
		fn(r)
	})
}

func (p *Pool) forkJoin(chunks []Range, fn func(index int, r Range)) {
	switch len(chunks) {
	case 0:
		return
	case 1:
		fn(0, chunks[0])
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(chunks))
	for index, chunk := range chunks {
		index, chunk := index, chunk
		go func() {
			defer wg.Done()
			fn(index, chunk)
		}()
	}
	wg.Wait()
}

// ForEach invokes fn for every index in [begin, end) using at most workers
// partitions.
func (p *Pool) ForEach(workers, begin, end int, fn func(i int)) {
	p.Do(workers, begin, end, func(r Range) {
		for i := r.Begin; i < r.End; i++ {
			fn(i)
		}
	})
}

package parallel

// InclusiveSum replaces every element of data with the sum of itself and all
// preceding elements.
//
// The scan runs in two passes over the same partitions: each partition is
// first scanned locally, the partition totals are then accumulated on the
// calling goroutine and finally added back to every partition but the
// first. Integer addition is associative, so the result does not depend on
// the number of workers.
func (p *Pool) InclusiveSum(workers int, data []uint32) {
	chunks := Partition(0, len(data), p.clamp(workers))
	if len(chunks) == 0 {
		return
	}

	p.forkJoin(chunks, func(_ int, r Range) {
		for i := r.Begin + 1; i < r.End; i++ {
			data[i] += data[i-1]
		}
	})

	if len(chunks) == 1 {
		return
	}

	offsets := make([]uint32, len(chunks))
	for i := 1; i < len(chunks); i++ {
		offsets[i] = offsets[i-1] + data[chunks[i-1].End-1]
	}

	p.forkJoin(chunks[1:], func(index int, r Range) {
		offset := offsets[index+1]
		for i := r.Begin; i < r.End; i++ {
			data[i] += offset
		}
	})
}

package sieve

// Bitmap marks the survivors of one chunk: index i stands for Low+i.
type Bitmap []bool

// Worker sieves chunks against the base list it was created with.
type Worker struct {
	base BaseList
}

// NewWorker captures base. The caller must not modify base afterwards.
func NewWorker(base BaseList) *Worker {
	return &Worker{base: base}
}

func (w *Worker) Sieve(c Chunk) Bitmap {
	return SieveSegment(c, w.base)
}

// SieveSegment marks the composites of c using base, which must contain every
// prime up to ⌊√c.High⌋. An empty chunk yields an empty bitmap.
func SieveSegment(c Chunk, base BaseList) Bitmap {
	size := c.Len()
	primes := make(Bitmap, size)
	if size == 0 {
		return primes
	}

	// Initialize all as prime
	for i := range primes {
		primes[i] = true
	}

	for _, p := range base {
		if p > c.High/p {
			break
		}
		start := p * p

		// first multiple of p at or above Low
		if first := c.Low - c.Low%p; first >= start {
			if first < c.Low {
				if first > c.High-p {
					continue
				}
				first += p
			}
			start = first
		}

		// stepping by p must not wrap past math.MaxInt
		for m := start; ; m += p {
			primes[m-c.Low] = false
			if m > c.High-p {
				break
			}
		}
	}

	// 0 and 1 are never reached by the multiples above
	for v := c.Low; v <= 1 && v <= c.High; v++ {
		primes[v-c.Low] = false
	}

	return primes
}

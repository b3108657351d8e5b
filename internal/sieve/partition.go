package sieve

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned for a negative bound or a worker count below one.
var ErrInvalidInput = errors.New("invalid input")

// Chunk is the inclusive range [Low, High] assigned to one worker.
// A chunk past the end of the universe has High < Low and holds no candidates.
type Chunk struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// Len is the number of candidates in c. It saturates at math.MaxInt for
// the one chunk, [0, math.MaxInt], whose length does not fit in an int.
func (c Chunk) Len() int {
	if c.Empty() {
		return 0
	}
	if d := c.High - c.Low; d < math.MaxInt {
		return d + 1
	}
	return math.MaxInt
}

func (c Chunk) Empty() bool {
	return c.High < c.Low
}

func (c Chunk) Contains(v int) bool {
	return v >= c.Low && v <= c.High
}

func (c Chunk) String() string {
	if c.Empty() {
		return fmt.Sprintf("[%d, -)", c.Low)
	}
	return fmt.Sprintf("[%d, %d]", c.Low, c.High)
}

// MaxWorkers bounds the worker count so that chunk boundaries always fit
// in an int.
const MaxWorkers = math.MaxInt32

// ChunkSize is ⌈(n+1)/workers⌉. It saturates at math.MaxInt for the single
// chunk [0, math.MaxInt].
func ChunkSize(n, workers int) int {
	if q := n / workers; q < math.MaxInt {
		return q + 1
	}
	return math.MaxInt
}

// Partition splits [0, n] into exactly workers chunks of ChunkSize each,
// the last live chunk clamped to n. When workers > n+1 the trailing chunks
// are empty.
func Partition(n, workers int) ([]Chunk, error) {
	if err := validate(n, workers); err != nil {
		return nil, err
	}

	size := ChunkSize(n, workers)
	chunks := make([]Chunk, workers)
	for i := range chunks {
		chunks[i] = chunkAt(n, workers, size, i)
	}

	return chunks, nil
}

// ChunkFor derives chunk index of a workers-way partition without building
// the others. Every rank of a cluster calls it with the same n and workers.
func ChunkFor(n, workers, index int) (Chunk, error) {
	if err := validate(n, workers); err != nil {
		return Chunk{}, err
	}
	if index < 0 || index >= workers {
		return Chunk{}, fmt.Errorf("%w: chunk index %d out of range [0, %d)", ErrInvalidInput, index, workers)
	}

	return chunkAt(n, workers, ChunkSize(n, workers), index), nil
}

func chunkAt(n, workers, size, i int) Chunk {
	low := i * size
	if i == workers-1 {
		return Chunk{Low: low, High: n}
	}
	return Chunk{Low: low, High: min(low+size-1, n)}
}

func validate(n, workers int) error {
	if n < 0 {
		return fmt.Errorf("%w: bound %d is negative", ErrInvalidInput, n)
	}
	if workers < 1 || workers > MaxWorkers {
		return fmt.Errorf("%w: worker count %d, need 1 to %d", ErrInvalidInput, workers, MaxWorkers)
	}
	return nil
}

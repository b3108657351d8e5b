package pool

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segsieve/internal/sieve"
)

func newTestPool(t *testing.T, size int, base sieve.BaseList, opts ...Option) *Pool {
	t.Helper()

	log, _ := test.NewNullLogger()
	p, err := New(size, base, append([]Option{WithLogger(log)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func TestPoolOneChunkPerWorker(t *testing.T) {
	const n = 100

	for _, workers := range []int{1, 2, 4, 8} {
		chunks, err := sieve.Partition(n, workers)
		require.NoError(t, err)

		p := newTestPool(t, workers, sieve.BasePrimes(n))
		results, err := p.Map(chunks)
		require.NoError(t, err)
		require.Len(t, results, workers)

		var total sieve.Tally
		for i, r := range results {
			assert.Equal(t, i, r.Index)
			assert.Equal(t, i, r.Worker, "chunk %d ran on worker %d", i, r.Worker)
			assert.Equal(t, chunks[i], r.Chunk)
			assert.Nil(t, r.Bitmap)
			total = total.Add(r.Tally)
		}
		assert.Equal(t, 25, total.Count, "workers=%d", workers)
		assert.Equal(t, uint64(1060), total.Sum)
	}
}

func TestPoolRetain(t *testing.T) {
	chunks, err := sieve.Partition(30, 3)
	require.NoError(t, err)

	p := newTestPool(t, 3, sieve.BasePrimes(30), WithRetain())
	results, err := p.Map(chunks)
	require.NoError(t, err)

	var primes []int
	for _, r := range results {
		require.Len(t, r.Bitmap, r.Chunk.Len())
		primes = append(primes, r.Bitmap.Primes(r.Chunk.Low)...)
	}
	assert.Equal(t, []int{2, 3, 5, 7, 11, 13, 17, 19, 23, 29}, primes)
}

func TestPoolMoreChunksThanWorkers(t *testing.T) {
	chunks, err := sieve.Partition(10_000, 12)
	require.NoError(t, err)

	p := newTestPool(t, 4, sieve.BasePrimes(10_000))
	results, err := p.Map(chunks)
	require.NoError(t, err)

	var total sieve.Tally
	for i, r := range results {
		assert.Equal(t, i%4, r.Worker)
		total = total.Add(r.Tally)
	}
	assert.Equal(t, 1229, total.Count)

	// the pool is reusable until closed
	again, err := p.Map(chunks)
	require.NoError(t, err)
	assert.Equal(t, len(results), len(again))
}

func TestPoolDegenerateChunks(t *testing.T) {
	chunks, err := sieve.Partition(2, 6)
	require.NoError(t, err)

	p := newTestPool(t, 6, sieve.BasePrimes(2))
	results, err := p.Map(chunks)
	require.NoError(t, err)

	var total sieve.Tally
	for _, r := range results {
		total = total.Add(r.Tally)
	}
	assert.Equal(t, sieve.Tally{Count: 1, Sum: 2}, total)
}

func TestPoolClosed(t *testing.T) {
	log, _ := test.NewNullLogger()
	p, err := New(2, sieve.BasePrimes(10), WithLogger(log))
	require.NoError(t, err)

	p.Close()
	p.Close()

	_, err = p.Map([]sieve.Chunk{{Low: 0, High: 10}})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPoolInvalidSize(t *testing.T) {
	_, err := New(0, nil)
	assert.ErrorIs(t, err, sieve.ErrInvalidInput)
}

func TestPoolLogsChunks(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	p, err := New(2, sieve.BasePrimes(50), WithLogger(log))
	require.NoError(t, err)

	chunks, err := sieve.Partition(50, 2)
	require.NoError(t, err)
	_, err = p.Map(chunks)
	require.NoError(t, err)
	p.Close()

	sieved := 0
	for _, e := range hook.AllEntries() {
		if e.Message == "chunk sieved" {
			sieved++
			assert.Contains(t, e.Data, "worker")
		}
	}
	assert.Equal(t, 2, sieved)
}

func TestWorkerTimes(t *testing.T) {
	results := []Result{
		{Worker: 0, Elapsed: time.Second},
		{Worker: 2, Elapsed: 2 * time.Second},
		{Worker: 0, Elapsed: 3 * time.Second},
	}
	assert.Equal(t, []time.Duration{4 * time.Second, 0, 2 * time.Second}, WorkerTimes(3, results))
}

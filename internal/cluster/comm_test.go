package cluster

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type payload struct {
	N     int   `json:"n"`
	Base  []int `json:"base"`
	Extra string
}

// runRanks runs fn on every rank concurrently and waits for all of them.
func runRanks(t *testing.T, comms []*Comm, fn func(ctx context.Context, c *Comm) error) error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range comms {
		c := c
		g.Go(func() error {
			return fn(gctx, c)
		})
	}
	return g.Wait()
}

func TestLocalBcast(t *testing.T) {
	comms, err := NewLocal(4)
	require.NoError(t, err)

	want := payload{N: 100, Base: []int{2, 3, 5, 7}, Extra: "x"}
	got := make([]payload, len(comms))

	err = runRanks(t, comms, func(ctx context.Context, c *Comm) error {
		if c.Rank() == 0 {
			got[0] = want
		}
		return c.Bcast(ctx, 0, &got[c.Rank()])
	})
	require.NoError(t, err)

	for rank, p := range got {
		assert.Equal(t, want, p, "rank %d", rank)
	}

	// every rank decoded its own copy
	got[1].Base[0] = 99
	assert.Equal(t, 2, got[2].Base[0])
	assert.Equal(t, 2, want.Base[0])
}

func TestLocalReduce(t *testing.T) {
	comms, err := NewLocal(3)
	require.NoError(t, err)

	values := [][]float64{{1.0, 10}, {5.0, 20}, {2.0, 30}}
	maxes := make([][]float64, len(comms))
	sums := make([][]float64, len(comms))

	err = runRanks(t, comms, func(ctx context.Context, c *Comm) error {
		var err error
		if maxes[c.Rank()], err = c.ReduceMax(ctx, 0, values[c.Rank()]...); err != nil {
			return err
		}
		sums[c.Rank()], err = c.Reduce(ctx, 0, Sum, values[c.Rank()]...)
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, []float64{5.0, 30}, maxes[0])
	assert.Equal(t, []float64{8.0, 60}, sums[0])
	assert.Equal(t, values[1], maxes[1])
	assert.Equal(t, values[2], sums[2])
}

func TestReduceSumIsExactPastFloatPrecision(t *testing.T) {
	comms, err := NewLocal(3)
	require.NoError(t, err)

	const big = int64(1)<<53 + 1
	sums := make([][]int64, len(comms))
	err = runRanks(t, comms, func(ctx context.Context, c *Comm) error {
		var err error
		sums[c.Rank()], err = c.ReduceSum(ctx, 0, big, int64(c.Rank()))
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{3*big, 3}, sums[0])
	assert.Equal(t, []int64{big, 2}, sums[2])
	// the same total folded as float64 drops the low bits
	folded := Sum(Sum(float64(big), float64(big)), float64(big))
	assert.NotEqual(t, 3*big, int64(folded))
}

func TestReduceNonZeroRoot(t *testing.T) {
	comms, err := NewLocal(3)
	require.NoError(t, err)

	result := make([][]float64, len(comms))
	err = runRanks(t, comms, func(ctx context.Context, c *Comm) error {
		var err error
		result[c.Rank()], err = c.ReduceMax(ctx, 2, float64(c.Rank()*10))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{20}, result[2])
}

func TestSingleRank(t *testing.T) {
	comms, err := NewLocal(1)
	require.NoError(t, err)
	c := comms[0]

	v := payload{N: 7}
	require.NoError(t, c.Bcast(context.Background(), 0, &v))
	assert.Equal(t, 7, v.N)

	got, err := c.ReduceMax(context.Background(), 0, 3.5)
	require.NoError(t, err)
	assert.Equal(t, []float64{3.5}, got)
	assert.NoError(t, c.Close())
}

func TestBcastMismatchIsCoordinationFailure(t *testing.T) {
	comms, err := NewLocal(2)
	require.NoError(t, err)

	// rank 1 waits for a broadcast but rank 0 sends a reduction
	ctx := context.Background()
	var v payload
	err = comms[0].t.Send(ctx, 1, Message{Method: methodReduce, Params: json.RawMessage(`[1]`)})
	require.NoError(t, err)
	err = comms[1].Bcast(ctx, 0, &v)
	assert.ErrorIs(t, err, ErrCoordination)
}

func TestReduceLengthMismatch(t *testing.T) {
	comms, err := NewLocal(2)
	require.NoError(t, err)

	err = runRanks(t, comms, func(ctx context.Context, c *Comm) error {
		xs := []float64{1}
		if c.Rank() == 1 {
			xs = []float64{1, 2}
		}
		_, err := c.ReduceMax(ctx, 0, xs...)
		return err
	})
	assert.ErrorIs(t, err, ErrCoordination)
}

func TestRecvHonoursContext(t *testing.T) {
	comms, err := NewLocal(2)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var v payload
	err = comms[1].Bcast(ctx, 0, &v)
	assert.ErrorIs(t, err, ErrCoordination)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInvalidRanks(t *testing.T) {
	_, err := NewLocal(0)
	assert.Error(t, err)

	comms, err := NewLocal(2)
	require.NoError(t, err)

	assert.Error(t, comms[0].Bcast(context.Background(), 2, &payload{}))
	_, err = comms[0].ReduceMax(context.Background(), -1, 1)
	assert.Error(t, err)

	_, err = NewComm(3, 3, nil)
	assert.Error(t, err)

	assert.Error(t, comms[0].t.Send(context.Background(), 0, Message{}))
}

func TestOps(t *testing.T) {
	assert.Equal(t, 5.0, Max(5, 1))
	assert.Equal(t, 5.0, Max(1, 5))
	assert.Equal(t, 6.0, Sum(1, 5))
}

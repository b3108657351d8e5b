// Package cluster provides the collectives a distributed sieve run needs:
// a one-to-all broadcast and an all-to-one reduction, built on point-to-point
// messages over a pluggable Transport.
//
// Ranks are numbered 0..Size()-1. Collectives are rooted at one rank and use
// a star pattern: the root talks to every other rank, non-root ranks only
// talk to the root. Every rank must call the same collectives in the same
// order.
package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCoordination marks a broadcast or reduction that did not complete.
// A run that hits it has no defined result and must be aborted.
var ErrCoordination = errors.New("coordination failure")

const (
	methodBcast  = "sieve/bcast"
	methodReduce = "sieve/reduce"
)

// Message is one point-to-point message.
type Message struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Transport moves messages between this rank and a peer. Messages between a
// given pair of ranks arrive in the order they were sent.
type Transport interface {
	Send(ctx context.Context, peer int, msg Message) error
	Recv(ctx context.Context, peer int) (Message, error)
	Close() error
}

// Op folds two values of a reduction.
type Op func(a, b float64) float64

func Max(a, b float64) float64 {
	if b > a {
		return b
	}
	return a
}

func Sum(a, b float64) float64 {
	return a + b
}

// Comm is one rank's view of the cluster.
type Comm struct {
	rank int
	size int
	t    Transport
}

func NewComm(rank, size int, t Transport) (*Comm, error) {
	if size < 1 {
		return nil, fmt.Errorf("cluster size %d, need at least 1", size)
	}
	if rank < 0 || rank >= size {
		return nil, fmt.Errorf("rank %d out of range [0, %d)", rank, size)
	}
	return &Comm{rank: rank, size: size, t: t}, nil
}

func (c *Comm) Rank() int { return c.rank }

func (c *Comm) Size() int { return c.size }

func (c *Comm) Close() error {
	return c.t.Close()
}

// Bcast sends v from root to every rank. On root v is encoded and sent; on
// every other rank the root's value is decoded into v, which must be a pointer.
func (c *Comm) Bcast(ctx context.Context, root int, v any) error {
	if err := c.checkRoot(root); err != nil {
		return err
	}

	if c.rank != root {
		msg, err := c.recv(ctx, root, methodBcast)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(msg.Params, v); err != nil {
			return fmt.Errorf("%w: decode broadcast from rank %d: %w", ErrCoordination, root, err)
		}
		return nil
	}

	params, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode broadcast: %w", err)
	}
	for peer := 0; peer < c.size; peer++ {
		if peer == root {
			continue
		}
		if err := c.t.Send(ctx, peer, Message{Method: methodBcast, Params: params}); err != nil {
			return fmt.Errorf("%w: broadcast to rank %d: %w", ErrCoordination, peer, err)
		}
	}
	return nil
}

// Reduce folds xs element-wise across all ranks with op. Root gets the
// result; every other rank gets its own xs back.
func (c *Comm) Reduce(ctx context.Context, root int, op Op, xs ...float64) ([]float64, error) {
	return reduce[float64](ctx, c, root, op, xs)
}

// ReduceSum adds xs element-wise across all ranks in integer arithmetic,
// so totals past 2^53 stay exact.
func (c *Comm) ReduceSum(ctx context.Context, root int, xs ...int64) ([]int64, error) {
	return reduce(ctx, c, root, func(a, b int64) int64 { return a + b }, xs)
}

func reduce[T float64 | int64](ctx context.Context, c *Comm, root int, op func(a, b T) T, xs []T) ([]T, error) {
	if err := c.checkRoot(root); err != nil {
		return nil, err
	}

	if c.rank != root {
		params, err := json.Marshal(xs)
		if err != nil {
			return nil, fmt.Errorf("encode reduction: %w", err)
		}
		if err := c.t.Send(ctx, root, Message{Method: methodReduce, Params: params}); err != nil {
			return nil, fmt.Errorf("%w: reduce to rank %d: %w", ErrCoordination, root, err)
		}
		return xs, nil
	}

	acc := append([]T(nil), xs...)
	for peer := 0; peer < c.size; peer++ {
		if peer == root {
			continue
		}

		msg, err := c.recv(ctx, peer, methodReduce)
		if err != nil {
			return nil, err
		}

		var theirs []T
		if err := json.Unmarshal(msg.Params, &theirs); err != nil {
			return nil, fmt.Errorf("%w: decode reduction from rank %d: %w", ErrCoordination, peer, err)
		}
		if len(theirs) != len(acc) {
			return nil, fmt.Errorf("%w: rank %d reduced %d values, want %d", ErrCoordination, peer, len(theirs), len(acc))
		}

		for i := range acc {
			acc[i] = op(acc[i], theirs[i])
		}
	}
	return acc, nil
}

// ReduceMax is Reduce with Max.
func (c *Comm) ReduceMax(ctx context.Context, root int, xs ...float64) ([]float64, error) {
	return c.Reduce(ctx, root, Max, xs...)
}

func (c *Comm) recv(ctx context.Context, peer int, method string) (Message, error) {
	msg, err := c.t.Recv(ctx, peer)
	if err != nil {
		return Message{}, fmt.Errorf("%w: receive from rank %d: %w", ErrCoordination, peer, err)
	}
	if msg.Method != method {
		return Message{}, fmt.Errorf("%w: rank %d sent %q, want %q", ErrCoordination, peer, msg.Method, method)
	}
	return msg, nil
}

func (c *Comm) checkRoot(root int) error {
	if root < 0 || root >= c.size {
		return fmt.Errorf("root rank %d out of range [0, %d)", root, c.size)
	}
	return nil
}

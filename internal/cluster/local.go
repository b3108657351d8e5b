package cluster

import (
	"context"
	"fmt"
)

// mailbox depth per ordered pair of ranks; a star collective never has more
// than one message in flight per pair
const localDepth = 4

type localNet struct {
	links [][]chan Message // links[from][to]
}

type localTransport struct {
	rank int
	net  *localNet
}

// NewLocal builds a cluster of size ranks inside one process, connected by
// channels, and returns the Comm of every rank indexed by rank.
func NewLocal(size int) ([]*Comm, error) {
	if size < 1 {
		return nil, fmt.Errorf("cluster size %d, need at least 1", size)
	}

	n := &localNet{links: make([][]chan Message, size)}
	for from := range n.links {
		n.links[from] = make([]chan Message, size)
		for to := range n.links[from] {
			if from != to {
				n.links[from][to] = make(chan Message, localDepth)
			}
		}
	}

	comms := make([]*Comm, size)
	for rank := range comms {
		c, err := NewComm(rank, size, &localTransport{rank: rank, net: n})
		if err != nil {
			return nil, err
		}
		comms[rank] = c
	}
	return comms, nil
}

func (t *localTransport) link(from, to int) (chan Message, error) {
	size := len(t.net.links)
	if from < 0 || from >= size || to < 0 || to >= size || from == to {
		return nil, fmt.Errorf("no link from rank %d to rank %d", from, to)
	}
	return t.net.links[from][to], nil
}

func (t *localTransport) Send(ctx context.Context, peer int, msg Message) error {
	ch, err := t.link(t.rank, peer)
	if err != nil {
		return err
	}

	select {
	case ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *localTransport) Recv(ctx context.Context, peer int) (Message, error) {
	ch, err := t.link(peer, t.rank)
	if err != nil {
		return Message{}, err
	}

	select {
	case msg := <-ch:
		return msg, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (t *localTransport) Close() error {
	return nil
}

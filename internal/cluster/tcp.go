package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/multierr"
)

const (
	methodHello = "cluster/hello"

	dialRetryInterval = 100 * time.Millisecond
)

type hello struct {
	Rank int `json:"rank"`
	Size int `json:"size"`
}

type tcpPeer struct {
	conn   net.Conn
	stream jsonrpc2.Stream
}

// tcpTransport frames every Message as a JSON-RPC notification on a
// Content-Length delimited stream. Rank 0 holds one connection per peer,
// every other rank holds a single connection to rank 0.
type tcpTransport struct {
	rank  int
	peers map[int]*tcpPeer
	log   logrus.FieldLogger

	closeOnce sync.Once
	closeErr  error
}

// Listener accepts the peers of a TCP cluster on rank 0.
type Listener struct {
	ln  net.Listener
	log logrus.FieldLogger
}

func Listen(addr string, log logrus.FieldLogger) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return &Listener{ln: ln, log: log}, nil
}

func (l *Listener) Addr() string {
	return l.ln.Addr().String()
}

func (l *Listener) Close() error {
	return l.ln.Close()
}

// Accept waits until ranks 1..size-1 have connected and introduced
// themselves, then returns rank 0's Comm. The listener is closed either way.
func (l *Listener) Accept(ctx context.Context, size int) (*Comm, error) {
	defer l.ln.Close()

	if size < 1 {
		return nil, fmt.Errorf("cluster size %d, need at least 1", size)
	}

	t := &tcpTransport{rank: 0, peers: make(map[int]*tcpPeer, size-1), log: l.log}

	stop := context.AfterFunc(ctx, func() { l.ln.Close() })
	defer stop()

	for len(t.peers) < size-1 {
		conn, err := l.ln.Accept()
		if err != nil {
			_ = t.Close()
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			return nil, fmt.Errorf("%w: waiting for %d of %d ranks: %w", ErrCoordination, size-1-len(t.peers), size-1, err)
		}

		p := &tcpPeer{conn: conn, stream: jsonrpc2.NewStream(conn)}
		h, err := readHello(ctx, p)
		if err != nil {
			l.log.WithError(err).WithField("remote", conn.RemoteAddr().String()).Warn("rejected cluster peer")
			_ = p.stream.Close()
			continue
		}

		if h.Size != size || h.Rank < 1 || h.Rank >= size || t.peers[h.Rank] != nil {
			l.log.WithFields(logrus.Fields{
				"remote": conn.RemoteAddr().String(),
				"rank":   h.Rank,
				"size":   h.Size,
			}).Warn("rejected cluster peer")
			_ = p.stream.Close()
			continue
		}

		t.peers[h.Rank] = p
		l.log.WithFields(logrus.Fields{
			"rank":   h.Rank,
			"remote": conn.RemoteAddr().String(),
		}).Debug("rank joined")
	}

	return NewComm(0, size, t)
}

// Dial connects rank to the rank 0 listening on addr. Until ctx expires,
// a refused connection is tried again so ranks may start in any order.
func Dial(ctx context.Context, addr string, rank, size int, log logrus.FieldLogger) (*Comm, error) {
	if rank < 1 || rank >= size {
		return nil, fmt.Errorf("rank %d cannot dial a cluster of size %d", rank, size)
	}

	var d net.Dialer
	var conn net.Conn
	for {
		var err error
		conn, err = d.DialContext(ctx, "tcp", addr)
		if err == nil {
			break
		}

		log.WithError(err).WithField("addr", addr).Debug("rank 0 not reachable yet")
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: connect to rank 0 at %s: %w", ErrCoordination, addr, err)
		case <-time.After(dialRetryInterval):
		}
	}

	p := &tcpPeer{conn: conn, stream: jsonrpc2.NewStream(conn)}
	t := &tcpTransport{rank: rank, peers: map[int]*tcpPeer{0: p}, log: log}

	if err := t.write(ctx, p, methodHello, hello{Rank: rank, Size: size}); err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("%w: introduce rank %d: %w", ErrCoordination, rank, err)
	}

	return NewComm(rank, size, t)
}

func readHello(ctx context.Context, p *tcpPeer) (hello, error) {
	var h hello
	msg, err := read(ctx, p)
	if err != nil {
		return h, err
	}
	if msg.Method != methodHello {
		return h, fmt.Errorf("expected %s, got %q", methodHello, msg.Method)
	}
	if err := json.Unmarshal(msg.Params, &h); err != nil {
		return h, fmt.Errorf("decode %s: %w", methodHello, err)
	}
	return h, nil
}

func (t *tcpTransport) peer(rank int) (*tcpPeer, error) {
	p, ok := t.peers[rank]
	if !ok {
		return nil, fmt.Errorf("rank %d has no connection to rank %d", t.rank, rank)
	}
	return p, nil
}

func (t *tcpTransport) Send(ctx context.Context, rank int, msg Message) error {
	p, err := t.peer(rank)
	if err != nil {
		return err
	}
	return t.write(ctx, p, msg.Method, msg.Params)
}

func (t *tcpTransport) Recv(ctx context.Context, rank int) (Message, error) {
	p, err := t.peer(rank)
	if err != nil {
		return Message{}, err
	}
	return read(ctx, p)
}

func (t *tcpTransport) write(ctx context.Context, p *tcpPeer, method string, params any) error {
	n, err := jsonrpc2.NewNotification(method, params)
	if err != nil {
		return err
	}

	applyDeadline(ctx, p.conn.SetWriteDeadline)
	if _, err := p.stream.Write(ctx, n); err != nil {
		return fmt.Errorf("failed to write %s: %w", method, err)
	}
	return nil
}

func read(ctx context.Context, p *tcpPeer) (Message, error) {
	applyDeadline(ctx, p.conn.SetReadDeadline)

	stop := context.AfterFunc(ctx, func() {
		_ = p.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	raw, _, err := p.stream.Read(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Message{}, ctxErr
		}
		return Message{}, err
	}

	n, ok := raw.(*jsonrpc2.Notification)
	if !ok {
		return Message{}, errors.New("unexpected JSON-RPC message, want notification")
	}
	return Message{Method: n.Method(), Params: json.RawMessage(n.Params())}, nil
}

func applyDeadline(ctx context.Context, set func(time.Time) error) {
	deadline, _ := ctx.Deadline()
	_ = set(deadline)
}

func (t *tcpTransport) Close() error {
	t.closeOnce.Do(func() {
		for rank, p := range t.peers {
			if err := p.stream.Close(); err != nil {
				t.closeErr = multierr.Append(t.closeErr, fmt.Errorf("close rank %d: %w", rank, err))
			}
		}
	})
	return t.closeErr
}

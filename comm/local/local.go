// Package local provides an in-process process group: every rank is a goroutine
// and messages travel through per-(src, dst) mailboxes.
//
// It is the harness used by tests and examples to run a multi-rank search in a
// single binary:
//
//	pairs, err := local.Gather(ctx, 4, func(ctx context.Context, c comm.Communicator) ([]core.Pair, error) {
//		return coarsesearch.Search(ctx, a[c.Rank()], b[c.Rank()], index.KDTree, c)
//	})
package local

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/coarsesearch/comm"
	"golang.org/x/sync/errgroup"
)

// ErrTagMismatch is returned when a received message carries a different tag
// than the caller expects.
var ErrTagMismatch = errors.New("tag mismatch")

// Op names a communicator operation for fault injection.
type Op string

const (
	OpAllGather Op = "allgather"
	OpSend      Op = "send"
	OpRecv      Op = "recv"
)

// FaultFunc is consulted before every operation. A non-nil return value fails
// the operation with that error. peer is -1 for collectives.
type FaultFunc func(op Op, rank, peer, tag int) error

// Option configures a Group.
type Option func(*Group)

// WithFault installs a fault injector.
func WithFault(f FaultFunc) Option {
	return func(g *Group) { g.fault = f }
}

// Stats counts the traffic of a group.
type Stats struct {
	Messages int64
	Bytes    int64
}

type message struct {
	tag     int
	payload []byte
}

// mailbox is an unbounded FIFO with a single consumer.
type mailbox struct {
	mu    sync.Mutex
	queue []message
	ready chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{}, 1)}
}

func (m *mailbox) put(msg message) {
	m.mu.Lock()
	m.queue = append(m.queue, msg)
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

func (m *mailbox) take(ctx context.Context) (message, error) {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			msg := m.queue[0]
			m.queue[0] = message{}
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return msg, nil
		}
		m.mu.Unlock()

		select {
		case <-m.ready:
		case <-ctx.Done():
			// A message that is already queued wins over cancellation.
			m.mu.Lock()
			defer m.mu.Unlock()
			if len(m.queue) > 0 {
				msg := m.queue[0]
				m.queue[0] = message{}
				m.queue = m.queue[1:]
				return msg, nil
			}
			return message{}, ctx.Err()
		}
	}
}

// Group is an in-process group of n ranks.
type Group struct {
	n     int
	p2p   [][]*mailbox // [src][dst]
	coll  [][]*mailbox // [src][dst]
	fault FaultFunc

	// collMu makes the fan-out of one AllGather appear atomic to receivers.
	collMu sync.Mutex

	messages atomic.Int64
	bytes    atomic.Int64
}

// NewGroup creates a group of n ranks. n must be positive.
func NewGroup(n int, opts ...Option) *Group {
	if n <= 0 {
		panic(fmt.Sprintf("local: group size %d must be positive", n))
	}
	g := &Group{n: n, p2p: newMailboxes(n), coll: newMailboxes(n)}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func newMailboxes(n int) [][]*mailbox {
	boxes := make([][]*mailbox, n)
	for src := range boxes {
		boxes[src] = make([]*mailbox, n)
		for dst := range boxes[src] {
			boxes[src][dst] = newMailbox()
		}
	}
	return boxes
}

// Size returns the number of ranks.
func (g *Group) Size() int { return g.n }

// Comm returns the communicator of rank.
func (g *Group) Comm(rank int) comm.Communicator {
	if rank < 0 || rank >= g.n {
		panic(fmt.Sprintf("local: rank %d out of range [0, %d)", rank, g.n))
	}
	return &endpoint{g: g, rank: rank}
}

// Stats returns the traffic exchanged so far. Collective payloads count once
// per receiving peer.
func (g *Group) Stats() Stats {
	return Stats{Messages: g.messages.Load(), Bytes: g.bytes.Load()}
}

func (g *Group) deliver(boxes [][]*mailbox, src, dst, tag int, payload []byte) {
	g.messages.Add(1)
	g.bytes.Add(int64(len(payload)))
	boxes[src][dst].put(message{tag: tag, payload: append([]byte(nil), payload...)})
}

type endpoint struct {
	g    *Group
	rank int
}

func (e *endpoint) Rank() int { return e.rank }
func (e *endpoint) Size() int { return e.g.n }

func (e *endpoint) check(ctx context.Context, op Op, peer, tag int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if op != OpAllGather && (peer < 0 || peer >= e.g.n) {
		return fmt.Errorf("rank %d out of range [0, %d)", peer, e.g.n)
	}
	if e.g.fault != nil {
		return e.g.fault(op, e.rank, peer, tag)
	}
	return nil
}

func (e *endpoint) AllGather(ctx context.Context, tag int, payload []byte) ([][]byte, error) {
	if err := e.check(ctx, OpAllGather, -1, tag); err != nil {
		return nil, comm.Wrap(err, string(OpAllGather), e.rank, -1, tag)
	}

	e.g.collMu.Lock()
	for q := 0; q < e.g.n; q++ {
		if q != e.rank {
			e.g.deliver(e.g.coll, e.rank, q, tag, payload)
		}
	}
	e.g.collMu.Unlock()

	out := make([][]byte, e.g.n)
	out[e.rank] = append([]byte(nil), payload...)
	for q := 0; q < e.g.n; q++ {
		if q == e.rank {
			continue
		}
		msg, err := e.g.coll[q][e.rank].take(ctx)
		if err != nil {
			return nil, comm.Wrap(err, string(OpAllGather), e.rank, q, tag)
		}
		if msg.tag != tag {
			return nil, comm.Wrap(fmt.Errorf("%w: got %d, want %d", ErrTagMismatch, msg.tag, tag), string(OpAllGather), e.rank, q, tag)
		}
		out[q] = msg.payload
	}
	return out, nil
}

func (e *endpoint) Send(ctx context.Context, dest, tag int, payload []byte) error {
	if err := e.check(ctx, OpSend, dest, tag); err != nil {
		return comm.Wrap(err, string(OpSend), e.rank, dest, tag)
	}
	e.g.deliver(e.g.p2p, e.rank, dest, tag, payload)
	return nil
}

func (e *endpoint) Recv(ctx context.Context, src, tag int) ([]byte, error) {
	if err := e.check(ctx, OpRecv, src, tag); err != nil {
		return nil, comm.Wrap(err, string(OpRecv), e.rank, src, tag)
	}
	msg, err := e.g.p2p[src][e.rank].take(ctx)
	if err != nil {
		return nil, comm.Wrap(err, string(OpRecv), e.rank, src, tag)
	}
	if msg.tag != tag {
		return nil, comm.Wrap(fmt.Errorf("%w: got %d, want %d", ErrTagMismatch, msg.tag, tag), string(OpRecv), e.rank, src, tag)
	}
	return msg.payload, nil
}

// Run executes fn on n ranks of a new group, each on its own goroutine. The
// first failing rank cancels the context passed to the others. Run returns the
// first error.
func Run(ctx context.Context, n int, fn func(ctx context.Context, c comm.Communicator) error, opts ...Option) error {
	g := NewGroup(n, opts...)
	return g.Run(ctx, fn)
}

// Run executes fn on every rank of g.
func (g *Group) Run(ctx context.Context, fn func(ctx context.Context, c comm.Communicator) error) error {
	eg, ctx := errgroup.WithContext(ctx)
	for rank := 0; rank < g.n; rank++ {
		c := g.Comm(rank)
		eg.Go(func() error { return fn(ctx, c) })
	}
	return eg.Wait()
}

// Gather is like Run but collects one result per rank, indexed by rank.
func Gather[T any](ctx context.Context, n int, fn func(ctx context.Context, c comm.Communicator) (T, error), opts ...Option) ([]T, error) {
	return GatherGroup(ctx, NewGroup(n, opts...), fn)
}

// GatherGroup is Gather on an existing group.
func GatherGroup[T any](ctx context.Context, g *Group, fn func(ctx context.Context, c comm.Communicator) (T, error)) ([]T, error) {
	out := make([]T, g.n)
	err := g.Run(ctx, func(ctx context.Context, c comm.Communicator) error {
		v, err := fn(ctx, c)
		if err != nil {
			return err
		}
		out[c.Rank()] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Errors runs fn on every rank of g and returns each rank's error, indexed by
// rank. Like Run, the first failure cancels the context of the other ranks, but
// every rank's own result is kept.
func (g *Group) Errors(ctx context.Context, fn func(ctx context.Context, c comm.Communicator) error) []error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make([]error, g.n)
	var wg sync.WaitGroup
	for rank := 0; rank < g.n; rank++ {
		c := g.Comm(rank)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if errs[rank] = fn(ctx, c); errs[rank] != nil {
				cancel()
			}
		}()
	}
	wg.Wait()
	return errs
}

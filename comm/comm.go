// Package comm defines the process group abstraction used by the exchange.
//
// A Communicator connects one rank to a fixed group of Size() ranks numbered
// 0..Size()-1. Ranks talk through collective AllGather rounds and tagged
// point-to-point messages. Tags let a receiver detect that a peer is in a
// different round than expected.
//
// Implementations must deliver messages between one (src, dst) pair in send
// order and must not drop or duplicate them. Nothing else is assumed: no
// ordering across senders, no retries.
package comm

import (
	"context"
	"errors"
	"fmt"
)

// ErrCommunication is wrapped by every error a Communicator returns.
var ErrCommunication = errors.New("communication failure")

// Communicator is one rank's handle to its process group.
type Communicator interface {
	// Rank returns the caller's position in the group.
	Rank() int
	// Size returns the number of ranks in the group.
	Size() int
	// AllGather publishes payload and returns the payloads of every rank,
	// indexed by rank. Every rank must call it with the same tag.
	AllGather(ctx context.Context, tag int, payload []byte) ([][]byte, error)
	// Send delivers payload to dest.
	Send(ctx context.Context, dest, tag int, payload []byte) error
	// Recv blocks until the next message from src arrives.
	Recv(ctx context.Context, src, tag int) ([]byte, error)
}

// OpError describes a failed communicator operation.
type OpError struct {
	Op   string
	Rank int
	Peer int // -1 for collectives
	Tag  int
	Err  error
}

func (e *OpError) Error() string {
	if e.Peer < 0 {
		return fmt.Sprintf("%s: %s rank=%d tag=%d: %v", ErrCommunication, e.Op, e.Rank, e.Tag, e.Err)
	}
	return fmt.Sprintf("%s: %s rank=%d peer=%d tag=%d: %v", ErrCommunication, e.Op, e.Rank, e.Peer, e.Tag, e.Err)
}

// Unwrap returns both ErrCommunication and the underlying cause, so errors.Is
// matches either.
func (e *OpError) Unwrap() []error { return []error{ErrCommunication, e.Err} }

// Wrap turns err into an *OpError unless it already is one.
func Wrap(err error, op string, rank, peer, tag int) error {
	if err == nil {
		return nil
	}
	var oe *OpError
	if errors.As(err, &oe) {
		return err
	}
	return &OpError{Op: op, Rank: rank, Peer: peer, Tag: tag, Err: err}
}

type single struct{}

// Single returns the communicator of a one-rank group. AllGather echoes the
// payload; point-to-point traffic is an error since there is no peer.
func Single() Communicator { return single{} }

func (single) Rank() int { return 0 }
func (single) Size() int { return 1 }

func (single) AllGather(ctx context.Context, tag int, payload []byte) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, Wrap(err, "allgather", 0, -1, tag)
	}
	return [][]byte{payload}, nil
}

func (single) Send(_ context.Context, dest, tag int, _ []byte) error {
	return Wrap(fmt.Errorf("rank %d out of range [0, 1)", dest), "send", 0, dest, tag)
}

func (single) Recv(_ context.Context, src, tag int) ([]byte, error) {
	return nil, Wrap(fmt.Errorf("rank %d out of range [0, 1)", src), "recv", 0, src, tag)
}

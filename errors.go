package coarsesearch

import (
	"errors"
	"fmt"

	"github.com/hupe1980/coarsesearch/comm"
	"github.com/hupe1980/coarsesearch/core"
	"github.com/hupe1980/coarsesearch/internal/exchange"
	"github.com/hupe1980/coarsesearch/resource"
)

var (
	// ErrInvalidInput is returned on every rank when any rank supplied a
	// malformed volume or an unknown search method.
	ErrInvalidInput = exchange.ErrInvalidInput

	// ErrCommunication is returned when the process group failed. Use
	// errors.As with *comm.OpError for the failing operation.
	ErrCommunication = comm.ErrCommunication

	// ErrResourceExhausted is returned on every rank when the exchange buffers
	// of some rank would exceed its memory budget.
	ErrResourceExhausted = errors.New("resource exhausted")
)

// InvalidVolumeError describes a malformed item in the local input.
//
// It matches both ErrInvalidInput and the underlying cause, usually
// geom.ErrInvalidVolume.
type InvalidVolumeError struct {
	Collection string // "A" or "B"
	Index      int
	Ident      core.Ident
	cause      error
}

func (e *InvalidVolumeError) Error() string {
	return fmt.Sprintf("%s: collection %s item %d %s: %v", ErrInvalidInput, e.Collection, e.Index, e.Ident, e.cause)
}

func (e *InvalidVolumeError) Unwrap() []error { return []error{ErrInvalidInput, e.cause} }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Communication failures keep their *comm.OpError chain.
	if errors.Is(err, comm.ErrCommunication) {
		return err
	}

	if errors.Is(err, resource.ErrMemoryLimitExceeded) {
		return fmt.Errorf("%w: %w", ErrResourceExhausted, err)
	}

	return err
}

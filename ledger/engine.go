package ledger

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ENGINE - Clock, ID source and behaviour switches for the pure operations
// =============================================================================

// AdjustmentMode decides what Apply does with ADJUSTMENT transactions,
// whose balance semantics are not defined yet.
type AdjustmentMode string

const (
	// AdjustmentReject refuses ADJUSTMENT with ErrAdjustmentUnsupported.
	AdjustmentReject AdjustmentMode = "reject"
	// AdjustmentRecord records the transaction and leaves the balance alone.
	AdjustmentRecord AdjustmentMode = "record"
)

func (m AdjustmentMode) Valid() bool {
	return m == AdjustmentReject || m == AdjustmentRecord
}

// Clock returns the current instant.
type Clock func() time.Time

// IDGenerator returns a fresh unique identifier.
type IDGenerator func() string

// UUIDGenerator produces random v4 UUID strings.
func UUIDGenerator() string {
	return uuid.NewString()
}

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	Clock          Clock
	IDs            IDGenerator
	AdjustmentMode AdjustmentMode

	// DedupeWithinBatch also skips rows whose external ID already appeared
	// earlier in the same import. Off by default: historically a single
	// import could create two employees with the same new external ID.
	DedupeWithinBatch bool
}

// Engine runs the ledger operations. It holds no State and no locks; every
// method maps an input State to an output State.
type Engine struct {
	now   Clock
	newID IDGenerator
	opts  Options
}

// NewEngine creates an engine with the given options.
func NewEngine(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	if opts.IDs == nil {
		opts.IDs = UUIDGenerator
	}
	if opts.AdjustmentMode == "" {
		opts.AdjustmentMode = AdjustmentReject
	}
	return &Engine{now: opts.Clock, newID: opts.IDs, opts: opts}
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

package engine

import (
	"errors"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

var ErrStaleRequest = errors.New("request was superseded by a newer one")

// Generations hands out increasing ids per input stream (one per form field,
// session or websocket) so that only the newest calculation's result is
// applied. Older calculations still run to completion; their results are
// discarded.
type Generations struct {
	streams *xsync.Map[string, *atomic.Uint64]
}

func NewGenerations() *Generations {
	return &Generations{streams: xsync.NewMap[string, *atomic.Uint64]()}
}

func (g *Generations) counter(stream string) *atomic.Uint64 {
	c, _ := g.streams.LoadOrStore(stream, new(atomic.Uint64))
	return c
}

// Next starts a new generation of stream and returns its id.
func (g *Generations) Next(stream string) uint64 {
	return g.counter(stream).Add(1)
}

// IsLatest reports whether gen is still the newest generation of stream.
func (g *Generations) IsLatest(stream string, gen uint64) bool {
	return g.counter(stream).Load() == gen
}

// Check returns ErrStaleRequest when gen has been superseded.
func (g *Generations) Check(stream string, gen uint64) error {
	if !g.IsLatest(stream, gen) {
		return ErrStaleRequest
	}
	return nil
}

// Forget drops the counter of a closed stream.
func (g *Generations) Forget(stream string) {
	g.streams.Delete(stream)
}

// Latest runs fn as a new generation of stream. Its result is returned only
// if no newer generation started while it ran; otherwise the result is
// dropped and ErrStaleRequest returned.
func Latest[T any](g *Generations, stream string, fn func() (T, error)) (T, error) {
	gen := g.Next(stream)
	result, err := fn()
	if staleErr := g.Check(stream, gen); staleErr != nil {
		var zero T
		return zero, staleErr
	}
	return result, err
}

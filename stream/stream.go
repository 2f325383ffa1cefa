package stream

import (
	"iter"
	"sync"

	"github.com/arnodel/struckstream/event"
)

// A Transformer turns a lazy sequence of events into another.  It pulls input
// events by ranging over in and produces output by yielding.  Yielding a
// non-nil error aborts the stream.
//
// A Transformer should be streaming: it yields the output for an event
// before pulling the next one (or as soon as it can), so that the whole
// pipeline runs in bounded memory and produces output early.
type Transformer interface {
	Transform(in iter.Seq[event.Annotated]) iter.Seq2[event.Annotated, error]
}

// Seq is the input of a Transformer.
type Seq = iter.Seq[event.Annotated]

// Seq2 is the output of a Transformer.
type Seq2 = iter.Seq2[event.Annotated, error]

// TransformFunc adapts a function to the Transformer interface.
type TransformFunc func(in iter.Seq[event.Annotated]) iter.Seq2[event.Annotated, error]

// Transform implements Transformer.
func (f TransformFunc) Transform(in iter.Seq[event.Annotated]) iter.Seq2[event.Annotated, error] {
	return f(in)
}

var _ Transformer = TransformFunc(nil)

// Chain composes transformers in a single process: the output of each one is
// the input of the next.  This is the in-process equivalent of piping stage
// processes together.  An error from any transformer stops the whole chain
// and is yielded by the chain before any further output.
func Chain(ts ...Transformer) Transformer {
	if len(ts) == 0 {
		return Identity
	}
	if len(ts) == 1 {
		return ts[0]
	}
	return TransformFunc(func(in iter.Seq[event.Annotated]) iter.Seq2[event.Annotated, error] {
		return func(yield func(event.Annotated, error) bool) {
			var failed errBox
			seq := in
			for _, t := range ts[:len(ts)-1] {
				seq = untilError(t.Transform(seq), &failed)
			}
			for a, err := range ts[len(ts)-1].Transform(seq) {
				if upstream := failed.get(); upstream != nil {
					yield(event.Annotated{}, upstream)
					return
				}
				if !yield(a, err) || err != nil {
					return
				}
			}
			if upstream := failed.get(); upstream != nil {
				yield(event.Annotated{}, upstream)
			}
		}
	})
}

// untilError turns seq into a sequence without errors.  The first error is
// stored in failed and ends the sequence.
func untilError(seq iter.Seq2[event.Annotated, error], failed *errBox) iter.Seq[event.Annotated] {
	return func(yield func(event.Annotated) bool) {
		for a, err := range seq {
			if failed.get() != nil {
				return
			}
			if err != nil {
				failed.set(err)
				return
			}
			if !yield(a) {
				return
			}
		}
	}
}

// errBox holds the first error of a stream.  Input sequences may be pulled
// from another goroutine than the one consuming the output (see the external
// transform), hence the lock.
type errBox struct {
	mu  sync.Mutex
	err error
}

func (b *errBox) set(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.err = err
	}
}

func (b *errBox) get() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

package stream

import (
	"iter"

	"github.com/arnodel/struckstream/event"
)

// Identity re-yields every event unchanged.
var Identity Transformer = TransformFunc(func(in iter.Seq[event.Annotated]) iter.Seq2[event.Annotated, error] {
	return func(yield func(event.Annotated, error) bool) {
		for a := range in {
			if !yield(a, nil) {
				return
			}
		}
	}
})

// Map transforms each event into exactly one event.
func Map(fn func(event.Annotated) (event.Annotated, error)) Transformer {
	return TransformFunc(func(in iter.Seq[event.Annotated]) iter.Seq2[event.Annotated, error] {
		return func(yield func(event.Annotated, error) bool) {
			for a := range in {
				out, err := fn(a)
				if err != nil {
					yield(event.Annotated{}, err)
					return
				}
				if !yield(out, nil) {
					return
				}
			}
		}
	})
}

// FlatMap transforms each event into zero or more events, yielded in order
// before the next input event is pulled.
func FlatMap(fn func(event.Annotated) ([]event.Annotated, error)) Transformer {
	return TransformFunc(func(in iter.Seq[event.Annotated]) iter.Seq2[event.Annotated, error] {
		return func(yield func(event.Annotated, error) bool) {
			for a := range in {
				outs, err := fn(a)
				if err != nil {
					yield(event.Annotated{}, err)
					return
				}
				for _, out := range outs {
					if !yield(out, nil) {
						return
					}
				}
			}
		}
	})
}

// Filter keeps only the events that satisfy the predicate.
func Filter(keep func(event.Annotated) bool) Transformer {
	return TransformFunc(func(in iter.Seq[event.Annotated]) iter.Seq2[event.Annotated, error] {
		return func(yield func(event.Annotated, error) bool) {
			for a := range in {
				if keep(a) && !yield(a, nil) {
					return
				}
			}
		}
	})
}

// Tap calls fn as a side-effect for each event, then passes the event
// through unchanged.  An error from fn aborts the stream.
func Tap(fn func(event.Annotated) error) Transformer {
	return Map(func(a event.Annotated) (event.Annotated, error) {
		return a, fn(a)
	})
}

// FromSlice returns a sequence yielding the given events.
func FromSlice(items []event.Annotated) iter.Seq[event.Annotated] {
	return func(yield func(event.Annotated) bool) {
		for _, a := range items {
			if !yield(a) {
				return
			}
		}
	}
}

// Collect applies t to items and returns all the events it yields.  It stops
// at the first error, returning the events produced so far.
func Collect(t Transformer, items []event.Annotated) ([]event.Annotated, error) {
	var out []event.Annotated
	for a, err := range t.Transform(FromSlice(items)) {
		if err != nil {
			return out, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Package transform contains the built-in stages.  Each of them registers
// itself with the stage package, so importing this package makes them
// available by name to stage.Main and to pipeline definitions.
package transform

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/arnodel/struckstream/event"
	"github.com/arnodel/struckstream/stage"
	"github.com/arnodel/struckstream/stream"
)

// Trace logs all the events of the stream.  It's useful for debugging
// pipelines.  Events are passed on unchanged unless Drop is true.
type Trace struct {
	Logger zerolog.Logger
	Drop   bool
}

var _ stream.Transformer = Trace{}

// Transform implements the Trace transform.
func (t Trace) Transform(in stream.Seq) stream.Seq2 {
	return func(yield func(event.Annotated, error) bool) {
		for a := range in {
			ev := t.Logger.Info().Str("type", a.Event.Type())
			if a.Location != nil {
				ev = ev.Stringer("at", a.Location)
			}
			ev.Interface("event", a.Event).Msg("trace")
			if !t.Drop && !yield(a, nil) {
				return
			}
		}
	}
}

// Drop removes the events of the given types from the stream.
//
// E.g. with Types = ["soft_break"]
//
//	text("a") soft_break text("b") -> text("a") text("b")
type Drop struct {
	Types []string `yaml:"types"`
}

var _ stream.Transformer = Drop{}

// Transform implements the Drop transform.
func (d Drop) Transform(in stream.Seq) stream.Seq2 {
	drop := make(map[string]bool, len(d.Types))
	for _, tp := range d.Types {
		drop[tp] = true
	}
	return stream.Filter(func(a event.Annotated) bool {
		return !drop[a.Event.Type()]
	}).Transform(in)
}

func init() {
	stage.Register("trace", "log every event to stderr", func(opts stage.Options) (stream.Transformer, error) {
		cfg := struct {
			Drop bool `yaml:"drop"`
		}{}
		if err := opts.Decode(&cfg); err != nil {
			return nil, err
		}
		return Trace{Logger: opts.Env.Logger, Drop: cfg.Drop}, nil
	})
	stage.Register("drop", "remove events of the given types", func(opts stage.Options) (stream.Transformer, error) {
		var d Drop
		if err := opts.Decode(&d); err != nil {
			return nil, err
		}
		if len(d.Types) == 0 {
			return nil, fmt.Errorf("types must list at least one event type")
		}
		return d, nil
	})
}

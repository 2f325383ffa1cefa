package stream

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/arnodel/struckstream/encoding/jsonl"
	"github.com/arnodel/struckstream/errors"
	"github.com/arnodel/struckstream/event"
)

// An Observer is told about the progress of a run.  It is used for metrics.
type Observer interface {
	EventRead()
	EventWritten()
	Failed(kind errors.Kind)
}

type nopObserver struct{}

func (nopObserver) EventRead()         {}
func (nopObserver) EventWritten()      {}
func (nopObserver) Failed(errors.Kind) {}

// A Runner owns the read-transform-write loop of a stage.  It reads lines
// one at a time, decodes them, feeds them lazily to its Transformer and
// encodes and writes every event the Transformer yields as soon as it is
// yielded.
//
// Reading the next line only happens when the Transformer asks for the next
// input event.  When the context passed to Run can be cancelled, lines are
// read in a helper goroutine so that cancellation interrupts a read blocked
// on a slow upstream.
type Runner struct {
	transformer Transformer
	codec       jsonl.Codec
	logger      zerolog.Logger
	observer    Observer
}

// Option configures a Runner.
type Option func(*Runner)

// WithConvention sets the location convention (default jsonl.DefaultConvention).
func WithConvention(c jsonl.Convention) Option {
	return func(r *Runner) { r.codec = jsonl.NewCodec(c) }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithObserver sets an Observer for the run.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// NewRunner returns a Runner for t.
func NewRunner(t Transformer, opts ...Option) *Runner {
	r := &Runner{
		transformer: t,
		codec:       jsonl.NewCodec(jsonl.DefaultConvention),
		logger:      zerolog.Nop(),
		observer:    nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run is a shortcut for NewRunner(t, opts...).RunIO(ctx, in, out).
func Run(ctx context.Context, t Transformer, in io.Reader, out io.Writer, opts ...Option) error {
	return NewRunner(t, opts...).RunIO(ctx, in, out)
}

// RunIO runs the stage reading lines from in and writing lines to out.
func (r *Runner) RunIO(ctx context.Context, in io.Reader, out io.Writer) error {
	return r.Run(ctx, NewLineReader(in), NewLineWriter(out))
}

// Run runs the stage until src is exhausted and the Transformer has yielded
// all its output, or until the first error.  Once an input line fails to
// decode no more output is written.  An error yielded by the Transformer is
// returned as a TransformationError unless it already has a kind.
func (r *Runner) Run(ctx context.Context, src LineSource, sink LineSink) error {
	var (
		failed errBox
		lineNo atomic.Int64
	)
	src = withContext(ctx, src)
	input := func(yield func(event.Annotated) bool) {
		for failed.get() == nil {
			if err := ctx.Err(); err != nil {
				failed.set(err)
				return
			}
			line, err := src.ReadLine()
			if err == io.EOF {
				return
			}
			if ctxErr := ctx.Err(); ctxErr != nil && err == ctxErr {
				failed.set(err)
				return
			}
			if err != nil {
				failed.set(errors.IO("cannot read input", err).AtLine(int(lineNo.Load()) + 1))
				return
			}
			n := lineNo.Add(1)
			a, err := r.codec.Decode(line)
			if err != nil {
				failed.set(atLine(err, n))
				return
			}
			r.observer.EventRead()
			if !yield(a) {
				return
			}
		}
	}

	r.logger.Debug().Str("convention", r.codec.Convention.String()).Msg("stage started")
	written := 0
	for a, err := range r.transformer.Transform(input) {
		if failed.get() != nil {
			break
		}
		if err != nil {
			if _, ok := errors.As(err); !ok {
				err = errors.Transform("transformation failed", err)
			}
			return r.fail(atLine(err, lineNo.Load()))
		}
		line, err := r.codec.Encode(a)
		if err != nil {
			return r.fail(atLine(err, lineNo.Load()))
		}
		if err := sink.WriteLine(line); err != nil {
			return r.fail(errors.IO("cannot write output", err))
		}
		written++
		r.observer.EventWritten()
	}
	if err := failed.get(); err != nil {
		return r.fail(err)
	}
	r.logger.Debug().Int64("read", lineNo.Load()).Int("written", written).Msg("stage finished")
	return nil
}

func (r *Runner) fail(err error) error {
	kind := errors.KindOf(err)
	if kind == "" {
		kind = errors.KindIO
	}
	r.observer.Failed(kind)
	return err
}

func atLine(err error, line int64) error {
	if e, ok := errors.As(err); ok {
		e.AtLine(int(line))
	}
	return err
}

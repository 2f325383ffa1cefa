// Package stage turns transformers into stage processes.
//
// A stage is a named transformer registered with Register, typically from an
// init function.  Main runs a registered stage over the standard streams of
// the process:
//
//	func main() {
//		stage.Main("youtube")
//	}
//
// It reads settings from the command line and the environment (see
// internal/config), logs diagnostics to stderr and exits with status 1 on
// failure.  Several stages can also be chained in one process with a
// Pipeline.
package stage

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/arnodel/struckstream/errors"
	"github.com/arnodel/struckstream/internal/config"
	"github.com/arnodel/struckstream/internal/logger"
	"github.com/arnodel/struckstream/internal/metrics"
	"github.com/arnodel/struckstream/stream"
)

// Setup prepares the environment of a stage from settings.  Diagnostics go
// to stderr.
func Setup(name string, s *config.Settings, stderr io.Writer) (Env, error) {
	c, err := s.ParsedConvention()
	if err != nil {
		return Env{}, err
	}
	var l = logger.NewWithWriter(s.Log, stderr, false)
	if stderr == io.Writer(os.Stderr) {
		l = logger.New(s.Log)
	}
	return Env{
		Name:        name,
		Convention:  c,
		RunID:       s.RunID,
		Logger:      logger.ForStage(l, name, s.RunID),
		MetricsFile: s.Metrics.File,
	}, nil
}

// Execute runs t over in and out.  A failure is logged before being
// returned, except for a closed output pipe which is not worth a message.
func Execute(ctx context.Context, env Env, t stream.Transformer, in io.Reader, out io.Writer) error {
	opts := []stream.Option{
		stream.WithConvention(env.Convention),
		stream.WithLogger(env.Logger),
	}
	var counters *metrics.Stage
	if env.MetricsFile != "" {
		counters = metrics.NewStage(env.Name)
		opts = append(opts, stream.WithObserver(counters))
	}

	err := stream.Run(ctx, t, in, out, opts...)

	if counters != nil {
		if werr := counters.WriteFile(env.MetricsFile); werr != nil {
			env.Logger.Warn().Err(werr).Str("file", env.MetricsFile).Msg("cannot write metrics")
		}
	}
	if err != nil && !IsBrokenPipe(err) {
		ev := env.Logger.Error()
		if e, ok := errors.As(err); ok {
			ev = ev.Str(logger.FieldKind, string(e.Kind))
			if e.Line > 0 {
				ev = ev.Int(logger.FieldLine, e.Line)
			}
			if len(e.Details) > 0 {
				ev = ev.Interface("details", e.Details)
			}
		}
		ev.Msg(err.Error())
	}
	return err
}

// IsBrokenPipe reports whether err is due to stdout being a pipe that was
// closed by the reader (e.g. 'head').
func IsBrokenPipe(err error) bool {
	return stderrors.Is(err, syscall.EPIPE)
}

// Open sets up the environment of the registered stage name and builds it
// with options given as "key=value" pairs.
func Open(name string, s *config.Settings, pairs []string, stderr io.Writer) (Env, stream.Transformer, error) {
	env, err := Setup(name, s, stderr)
	if err != nil {
		return env, nil, err
	}
	node, err := ParseOptions(pairs)
	if err != nil {
		return env, nil, err
	}
	t, err := New(name, NewOptions(node, env))
	return env, t, err
}

// AddFlags registers the flags of a stage command on fs.  The returned
// slice receives the -o key=value options.
func AddFlags(fs *pflag.FlagSet) *[]string {
	config.AddFlags(fs)
	return fs.StringArrayP("option", "o", nil, "stage option as key=value (repeatable)")
}

// Command runs the registered stage name as a command with the given
// arguments and streams.  It returns the process exit status.
func Command(name string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	optPairs := AddFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "%s - %s\n\nUSAGE:\n  %s [flags] < events.jsonl\n\nFLAGS:\n", name, Describe(name), name)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", fs.Args())
		return 2
	}

	settings, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return 1
	}
	env, t, err := Open(name, settings, *optPairs, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return 1
	}

	ctx, stop := SignalContext(context.Background())
	defer stop()
	if err := Execute(ctx, env, t, stdin, stdout); err != nil && !IsBrokenPipe(err) {
		return 1
	}
	return 0
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.  The first
// signal stops the stage even while it waits for input, and restores the
// default behaviour so that a second one kills the process.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx, stop
}

// Main runs the registered stage name over the standard streams and exits.
func Main(name string) {
	// Do not handle SIGPIPE, a write error is returned instead (see IsBrokenPipe).
	signal.Ignore(syscall.SIGPIPE)

	// Display a stack trace on panic
	defer func() {
		if e := recover(); e != nil {
			fmt.Fprintf(os.Stderr, "%s: %s", e, debug.Stack())
			os.Exit(1)
		}
	}()

	os.Exit(Command(name, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

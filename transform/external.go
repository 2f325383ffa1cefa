package transform

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/rs/zerolog"

	"github.com/arnodel/struckstream/encoding/jsonl"
	"github.com/arnodel/struckstream/errors"
	"github.com/arnodel/struckstream/event"
	"github.com/arnodel/struckstream/internal/config"
	"github.com/arnodel/struckstream/stage"
	"github.com/arnodel/struckstream/stream"
)

// External pipes the stream through a stage running in a child process.
// This is how stages written in other languages join a pipeline:
//
//	processors:
//	  - processor: external
//	    cmd: python3 ./role.py
//
// Events are written to the standard input of the command with the
// pipeline's convention and the lines it writes to its standard output are
// read back as events.  The command inherits the run id and convention
// through the environment.  It failing (exiting with a non-zero status) is a
// transformation error.
type External struct {
	// Cmd is the command line, split into words like a shell would.
	Cmd  string            `yaml:"cmd"`
	Args []string          `yaml:"args"`
	Env  map[string]string `yaml:"env"`
	Dir  string            `yaml:"dir"`

	Convention jsonl.Convention `yaml:"-"`
	RunID      string           `yaml:"-"`
	Logger     zerolog.Logger   `yaml:"-"`
	// Stderr receives the standard error of the command (default os.Stderr).
	Stderr io.Writer `yaml:"-"`
}

var _ stream.Transformer = &External{}

// Command returns the command to run.
func (x *External) Command() (*exec.Cmd, error) {
	argv, err := shellwords.Parse(x.Cmd)
	if err != nil {
		return nil, fmt.Errorf("invalid command %q: %w", x.Cmd, err)
	}
	argv = append(argv, x.Args...)
	if len(argv) == 0 {
		return nil, fmt.Errorf("no command to run")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = x.Dir
	cmd.Env = config.ChildEnv(x.RunID, x.convention().String())
	keys := make([]string, 0, len(x.Env))
	for k := range x.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cmd.Env = append(cmd.Env, k+"="+x.Env[k])
	}
	cmd.Stderr = x.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	return cmd, nil
}

func (x *External) convention() jsonl.Convention {
	if x.Convention.Valid() {
		return x.Convention
	}
	return jsonl.DefaultConvention
}

// Transform implements stream.Transformer.  Input events are fed to the
// command from a separate goroutine, so that a command that reads all of its
// input before writing anything does not block.
func (x *External) Transform(in stream.Seq) stream.Seq2 {
	return func(yield func(event.Annotated, error) bool) {
		cmd, err := x.Command()
		if err != nil {
			yield(event.Annotated{}, errors.Transform("cannot run external stage", err))
			return
		}
		name := strings.Join(cmd.Args, " ")
		stdin, err := cmd.StdinPipe()
		if err != nil {
			yield(event.Annotated{}, errors.IO("cannot connect external stage", err))
			return
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			yield(event.Annotated{}, errors.IO("cannot connect external stage", err))
			return
		}
		if err := cmd.Start(); err != nil {
			yield(event.Annotated{}, errors.Transform("cannot start external stage", err).WithDetail("cmd", name))
			return
		}
		x.Logger.Debug().Str("cmd", name).Int("pid", cmd.Process.Pid).Msg("external stage started")

		codec := jsonl.NewCodec(x.convention())
		fed := make(chan error, 1)
		go func() {
			err := feed(codec, in, stdin)
			fed <- err
			stdin.Close()
		}()

		ok := x.relay(codec, stdout, name, yield)
		if !ok {
			_ = cmd.Process.Kill()
		}
		waitErr := cmd.Wait()
		if !ok {
			return
		}
		// The feeder reports before closing stdin, so if it failed its error
		// is already there.  Otherwise it may still be waiting for an input
		// event the command will never read, and is left to stop on its
		// next write.
		var feedErr error
		select {
		case feedErr = <-fed:
		default:
		}
		if feedErr != nil {
			yield(event.Annotated{}, feedErr)
			return
		}
		if waitErr != nil {
			yield(event.Annotated{}, errors.Transform("external stage failed", waitErr).WithDetail("cmd", name))
			return
		}
		x.Logger.Debug().Str("cmd", name).Msg("external stage finished")
	}
}

// relay yields the events read from the command's output.  It returns false
// if the stream must stop.
func (x *External) relay(codec jsonl.Codec, stdout io.Reader, name string, yield func(event.Annotated, error) bool) bool {
	lines := stream.NewLineReader(stdout)
	for n := 1; ; n++ {
		line, err := lines.ReadLine()
		if err == io.EOF {
			return true
		}
		if err != nil {
			yield(event.Annotated{}, errors.IO("cannot read from external stage", err).WithDetail("cmd", name))
			return false
		}
		a, err := codec.Decode(line)
		if err != nil {
			if e, ok := errors.As(err); ok {
				err = e.WithDetail("cmd", name).WithDetail("output_line", n)
			}
			yield(event.Annotated{}, err)
			return false
		}
		if !yield(a, nil) {
			return false
		}
	}
}

// feed writes the input events to w.  Writing stops without error when the
// command no longer reads its input.
func feed(codec jsonl.Codec, in stream.Seq, w io.Writer) error {
	sink := stream.NewLineWriter(w)
	for a := range in {
		line, err := codec.Encode(a)
		if err != nil {
			return err
		}
		if err := sink.WriteLine(line); err != nil {
			return nil
		}
	}
	return nil
}

func init() {
	stage.Register("external", "pipe events through a command", func(opts stage.Options) (stream.Transformer, error) {
		x := &External{}
		if err := opts.Decode(x); err != nil {
			return nil, err
		}
		if strings.TrimSpace(x.Cmd) == "" && len(x.Args) == 0 {
			return nil, fmt.Errorf("cmd is required")
		}
		x.Convention = opts.Env.Convention
		x.RunID = opts.Env.RunID
		x.Logger = opts.Env.Logger
		return x, nil
	})
}

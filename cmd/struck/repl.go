package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/pflag"

	"github.com/arnodel/struckstream/internal/config"
	"github.com/arnodel/struckstream/stage"
	"github.com/arnodel/struckstream/stream"
)

// A prompter reads lines typed by the user.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
	Close() error
}

func newLinerPrompter() prompter {
	l := liner.NewLiner()
	l.SetCtrlCAborts(true)
	return l
}

// promptSource is a stream.LineSource reading events typed at a prompt.
// Blank lines are skipped, Ctrl-D or Ctrl-C end the input.
type promptSource struct {
	p      prompter
	prompt string
}

var _ stream.LineSource = (*promptSource)(nil)

func (s *promptSource) ReadLine() ([]byte, error) {
	for {
		line, err := s.p.Prompt(s.prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		s.p.AppendHistory(line)
		return []byte(line), nil
	}
}

// replCmd runs a stage over events typed interactively.  Output events are
// printed as soon as the stage yields them, which shows how far ahead of its
// output a stage reads.
func replCmd(args []string, newPrompter func() prompter, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("repl", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	optPairs := stage.AddFlags(fs)
	colorMode := fs.String("color", "auto", "colorize output events: auto, always, never")
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: struck repl STAGE [flags]")
		return 2
	}
	name := fs.Arg(0)

	settings, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return 1
	}
	env, t, err := stage.Open(name, settings, *optPairs, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return 1
	}
	sink, err := outputSink(stdout, *colorMode)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return 2
	}

	p := newPrompter()
	defer p.Close()
	fmt.Fprintf(stderr, "%s: type one %s event per line, Ctrl-D to finish\n", name, env.Convention)

	runner := stream.NewRunner(t,
		stream.WithConvention(env.Convention),
		stream.WithLogger(env.Logger),
	)
	err = runner.Run(context.Background(), &promptSource{p: p, prompt: name + "> "}, sink)
	if err != nil {
		env.Logger.Error().Msg(err.Error())
		return 1
	}
	return 0
}

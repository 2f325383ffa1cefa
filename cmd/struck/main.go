package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/arnodel/struckstream/internal/config"
	"github.com/arnodel/struckstream/stage"
	_ "github.com/arnodel/struckstream/transform"
)

func main() {
	// Do not handle SIGPIPE, we'll do it ourselves (see stage.IsBrokenPipe).
	signal.Ignore(syscall.SIGPIPE)

	// Display a stack trace on panic
	defer func() {
		if e := recover(); e != nil {
			fmt.Fprintf(os.Stderr, "%s: %s", e, debug.Stack())
			os.Exit(1)
		}
	}()

	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the struck command line and returns the exit status.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}
	switch cmd, rest := args[0], args[1:]; cmd {
	case "run":
		if len(rest) == 0 || rest[0] == "" || rest[0][0] == '-' {
			fmt.Fprintln(stderr, "usage: struck run STAGE [flags] < events.jsonl")
			return 2
		}
		return stage.Command(rest[0], rest[1:], stdin, stdout, stderr)
	case "process":
		return processCmd(rest, stdin, stdout, stderr)
	case "repl":
		return replCmd(rest, newLinerPrompter, stdout, stderr)
	case "stages":
		return stagesCmd(stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		printUsage(stderr)
		return 2
	}
}

func processCmd(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("process", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	config.AddFlags(fs)
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: struck process PIPELINE.yml [flags] < events.jsonl")
		return 2
	}

	settings, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return 1
	}
	env, err := stage.Setup("process", settings, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return 1
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		env.Logger.Error().Err(err).Msg("cannot open pipeline")
		return 1
	}
	defer f.Close()
	pipeline, err := stage.LoadPipeline(f)
	if err != nil {
		env.Logger.Error().Err(err).Str("file", fs.Arg(0)).Msg("cannot load pipeline")
		return 1
	}
	t, err := pipeline.Build(env)
	if err != nil {
		env.Logger.Error().Err(err).Str("file", fs.Arg(0)).Msg("cannot build pipeline")
		return 1
	}

	ctx, stop := stage.SignalContext(context.Background())
	defer stop()
	if err := stage.Execute(ctx, pipeline.Apply(env), t, stdin, stdout); err != nil && !stage.IsBrokenPipe(err) {
		return 1
	}
	return 0
}

func stagesCmd(stdout io.Writer) int {
	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for _, name := range stage.Names() {
		fmt.Fprintf(w, "%s\t%s\n", name, stage.Describe(name))
	}
	if err := w.Flush(); err != nil {
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `struck - structured document event stream processor

USAGE:
  struck run STAGE [flags] < events.jsonl
  struck process PIPELINE.yml [flags] < events.jsonl
  struck repl STAGE [flags]
  struck stages

DESCRIPTION:
  A document is represented as a stream of events, one JSON value per line.
  Stages transform the stream and can be chained with pipes:

    parser < doc.md | struck run youtube | struck run api_role | renderer

  or in a single process with a pipeline definition:

    convention: embedded
    processors:
      - processor: youtube
        width: 800
      - processor: external
        cmd: python3 ./role.py

COMMANDS:
  run STAGE       Run one stage over stdin and stdout
  process FILE    Run the pipeline defined in FILE over stdin and stdout
  repl STAGE      Type events interactively and see what a stage makes of them
  stages          List the available stages

FLAGS:
  -c, --convention NAME  Location convention: embedded (default) or paired
  -o, --option K=V       Stage option (run and repl only, repeatable)
  --log-level LEVEL      Diagnostics level (default: info)
  --log-format FORMAT    Diagnostics format: console (default) or json
  --no-color             Disable colored diagnostics
  --metrics-file FILE    Write Prometheus counters to FILE on exit
  --run-id ID            Run id for correlating diagnostics
  --config FILE          YAML settings file
  --env-file FILE        .env file to load

  Settings can also be given as environment variables, e.g. STRUCK_CONVENTION=paired.

For more information, visit: https://github.com/arnodel/struckstream
`)
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/arnodel/struckstream/stream"
)

// Some color ANSI codes
var (
	Reset      = []byte("\033[0m")
	BrightBlue = []byte("\033[34;1m")
)

// A Colorizer prints output lines in color, so that the events yielded by a
// stage stand out from the events typed at the repl prompt.
type Colorizer struct {
	LineColorCode []byte
	ResetCode     []byte
}

var defaultColorizer = Colorizer{
	LineColorCode: BrightBlue,
	ResetCode:     Reset,
}

type colorSink struct {
	sink      stream.LineSink
	colorizer *Colorizer
	buf       []byte
}

var _ stream.LineSink = (*colorSink)(nil)

func (s *colorSink) WriteLine(line []byte) error {
	s.buf = append(s.buf[:0], s.colorizer.LineColorCode...)
	s.buf = append(s.buf, line...)
	s.buf = append(s.buf, s.colorizer.ResetCode...)
	return s.sink.WriteLine(s.buf)
}

// outputSink returns the sink for lines written to stdout according to the
// color mode (auto, always or never).
func outputSink(stdout io.Writer, colorMode string) (stream.LineSink, error) {
	var colorizer *Colorizer
	switch colorMode {
	case "always":
		colorizer = &defaultColorizer
	case "never":
	case "auto":
		if f, ok := stdout.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			colorizer = &defaultColorizer
		}
	default:
		return nil, fmt.Errorf("invalid --color value: %q (use auto, always, or never)", colorMode)
	}
	if colorizer == nil {
		return stream.NewLineWriter(stdout), nil
	}
	if stdout == io.Writer(os.Stdout) {
		stdout = colorable.NewColorableStdout()
	}
	return &colorSink{sink: stream.NewLineWriter(stdout), colorizer: colorizer}, nil
}

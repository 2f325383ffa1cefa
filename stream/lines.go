package stream

import (
	"bufio"
	"bytes"
	"context"
	"io"
)

// A LineSource produces input lines one at a time.  ReadLine returns io.EOF
// when there are no more lines.  The returned slice is only valid until the
// next call.
type LineSource interface {
	ReadLine() ([]byte, error)
}

// A LineSink receives output lines.  line does not contain the newline.
type LineSink interface {
	WriteLine(line []byte) error
}

type lineReader struct {
	r *bufio.Reader
}

var _ LineSource = &lineReader{}

// NewLineReader returns a LineSource reading newline-delimited lines from r.
// Lines can be of any length; "\n" and "\r\n" terminators are removed and a
// last line without terminator is still returned.
func NewLineReader(r io.Reader) LineSource {
	return &lineReader{r: bufio.NewReader(r)}
}

func (l *lineReader) ReadLine() ([]byte, error) {
	line, err := l.r.ReadBytes('\n')
	if err == io.EOF {
		if len(line) == 0 {
			return nil, io.EOF
		}
		err = nil
	}
	if err != nil {
		return nil, err
	}
	line = bytes.TrimSuffix(line, []byte{'\n'})
	line = bytes.TrimSuffix(line, []byte{'\r'})
	return line, nil
}

type lineWriter struct {
	w *bufio.Writer
}

var _ LineSink = &lineWriter{}

// NewLineWriter returns a LineSink writing to w.  Each line is flushed as
// soon as it is written, so that the next stage in a pipeline sees it
// straight away.
func NewLineWriter(w io.Writer) LineSink {
	return &lineWriter{w: bufio.NewWriter(w)}
}

func (l *lineWriter) WriteLine(line []byte) error {
	if _, err := l.w.Write(line); err != nil {
		return err
	}
	if err := l.w.WriteByte('\n'); err != nil {
		return err
	}
	return l.w.Flush()
}

// SliceSource is a LineSource producing lines from a slice.
type SliceSource struct {
	lines []string
}

var _ LineSource = &SliceSource{}

// NewSliceSource returns a LineSource yielding the given lines.
func NewSliceSource(lines ...string) *SliceSource {
	return &SliceSource{lines: lines}
}

// ReadLine implements LineSource.
func (s *SliceSource) ReadLine() ([]byte, error) {
	if len(s.lines) == 0 {
		return nil, io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return []byte(line), nil
}

// Accumulator is a LineSink that keeps all the lines written to it.
type Accumulator struct {
	lines []string
}

var _ LineSink = &Accumulator{}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// WriteLine implements LineSink.
func (a *Accumulator) WriteLine(line []byte) error {
	a.lines = append(a.lines, string(line))
	return nil
}

// Lines returns the lines written so far.
func (a *Accumulator) Lines() []string {
	return a.lines
}

// contextSource is a LineSource whose ReadLine returns as soon as ctx is
// done, even when the underlying source is blocked waiting for input.  The
// blocked read is abandoned.
type contextSource struct {
	ctx     context.Context
	src     LineSource
	pending chan lineResult
}

type lineResult struct {
	line []byte
	err  error
}

var _ LineSource = &contextSource{}

func withContext(ctx context.Context, src LineSource) LineSource {
	if ctx.Done() == nil {
		return src
	}
	return &contextSource{ctx: ctx, src: src}
}

func (s *contextSource) ReadLine() ([]byte, error) {
	if s.pending == nil {
		res := make(chan lineResult, 1)
		go func() {
			line, err := s.src.ReadLine()
			res <- lineResult{line: line, err: err}
		}()
		s.pending = res
	}
	select {
	case <-s.ctx.Done():
		return nil, s.ctx.Err()
	case r := <-s.pending:
		s.pending = nil
		return r.line, r.err
	}
}

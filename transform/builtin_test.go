package transform

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnodel/struckstream/event"
	"github.com/arnodel/struckstream/stage"
	"github.com/arnodel/struckstream/stream"
)

func TestTrace(t *testing.T) {
	in := []event.Annotated{
		event.At(event.Text("a"), &event.Location{Line: 2, Column: 3}),
		event.Bare(event.EndTag("p")),
	}
	tests := []struct {
		name    string
		drop    bool
		wantOut int
	}{
		{"pass through", false, 2},
		{"drop", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			out, err := stream.Collect(Trace{Logger: zerolog.New(&logs), Drop: tt.drop}, in)
			require.NoError(t, err)
			assert.Len(t, out, tt.wantOut)

			lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
			require.Len(t, lines, 2)
			assert.Contains(t, lines[0], `"type":"text"`)
			assert.Contains(t, lines[0], `"at":"2:3"`)
			assert.Contains(t, lines[1], `"type":"end_tag"`)
			assert.NotContains(t, lines[1], `"at"`)
		})
	}
}

func TestTraceStage(t *testing.T) {
	var logs bytes.Buffer
	env := stage.Env{Logger: zerolog.New(&logs)}
	node, err := stage.ParseOptions([]string{"drop=true"})
	require.NoError(t, err)
	tr, err := stage.New("trace", stage.NewOptions(node, env))
	require.NoError(t, err)
	out, err := stream.Collect(tr, []event.Annotated{event.Bare(event.Text("a"))})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, logs.String(), "trace")
}

func TestDrop(t *testing.T) {
	in := []event.Annotated{
		event.Bare(event.Text("a")),
		event.Bare(event.Event{"type": "soft_break"}),
		event.Bare(event.Text("b")),
		event.Bare(event.Event{"type": "hard_break"}),
	}
	out, err := stream.Collect(build(t, "drop", "types=[soft_break, hard_break]"), in)
	require.NoError(t, err)
	assert.Equal(t, []event.Annotated{in[0], in[2]}, out)

	_, err = newStage(t, "drop")
	assert.ErrorContains(t, err, "types")
}

func TestBuiltinStagesRegistered(t *testing.T) {
	for _, name := range []string{"youtube", "api_role", "source_info", "autoanchors", "external", "trace", "drop", "html_sanitizer", "highlight"} {
		_, ok := stage.Lookup(name)
		assert.True(t, ok, name)
		assert.NotEmpty(t, stage.Describe(name), name)
	}
}

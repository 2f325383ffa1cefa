package transform

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnodel/struckstream/encoding/jsonl"
	"github.com/arnodel/struckstream/errors"
	"github.com/arnodel/struckstream/event"
	"github.com/arnodel/struckstream/stage"
	"github.com/arnodel/struckstream/stream"
)

// runLines runs tr as a stage over the given input lines.
func runLines(t *testing.T, tr stream.Transformer, c jsonl.Convention, lines ...string) ([]string, error) {
	t.Helper()
	sink := stream.NewAccumulator()
	err := stream.NewRunner(tr, stream.WithConvention(c)).Run(context.Background(), stream.NewSliceSource(lines...), sink)
	return sink.Lines(), err
}

// newStage builds a registered stage with options given as key=value pairs.
func newStage(t *testing.T, name string, pairs ...string) (stream.Transformer, error) {
	t.Helper()
	node, err := stage.ParseOptions(pairs)
	require.NoError(t, err)
	return stage.New(name, stage.NewOptions(node, stage.Env{Name: name, Convention: jsonl.Embedded, Logger: zerolog.Nop()}))
}

func build(t *testing.T, name string, pairs ...string) stream.Transformer {
	t.Helper()
	tr, err := newStage(t, name, pairs...)
	require.NoError(t, err)
	return tr
}

func directive(frontMatter map[string]any) event.Event {
	return event.Event{"type": "directive", "name": "youtube", "front_matter": frontMatter}
}

func TestYouTubeLine(t *testing.T) {
	out, err := runLines(t, build(t, "youtube"), jsonl.Embedded,
		`{"type":"directive","name":"youtube","front_matter":{"id":"abc123"}}`,
		`{"type":"text","text":"after"}`,
	)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`{"html":"<iframe type=\"text/html\" width=\"640\" height=\"360\" src=\"https://www.youtube.com/embed/abc123?autoplay=1\" frameborder=0></iframe>\n","type":"raw_html"}`,
		`{"text":"after","type":"text"}`,
	}, out)
}

func TestYouTubePlayer(t *testing.T) {
	tests := []struct {
		name        string
		yt          *YouTube
		frontMatter map[string]any
		want        string
	}{
		{
			name:        "defaults",
			yt:          NewYouTube(),
			frontMatter: map[string]any{"id": "abc123"},
			want:        `<iframe type="text/html" width="640" height="360" src="https://www.youtube.com/embed/abc123?autoplay=1" frameborder=0></iframe>` + "\n",
		},
		{
			name:        "numbers",
			yt:          NewYouTube(),
			frontMatter: map[string]any{"id": "x", "width": json.Number("800"), "height": json.Number("450")},
			want:        `<iframe type="text/html" width="800" height="450" src="https://www.youtube.com/embed/x?autoplay=1" frameborder=0></iframe>` + "\n",
		},
		{
			name:        "numeric strings",
			yt:          NewYouTube(),
			frontMatter: map[string]any{"id": "x", "width": "320", "height": "180"},
			want:        `<iframe type="text/html" width="320" height="180" src="https://www.youtube.com/embed/x?autoplay=1" frameborder=0></iframe>` + "\n",
		},
		{
			name:        "zero and empty fall back to defaults",
			yt:          NewYouTube(),
			frontMatter: map[string]any{"id": "x", "width": json.Number("0"), "height": ""},
			want:        `<iframe type="text/html" width="640" height="360" src="https://www.youtube.com/embed/x?autoplay=1" frameborder=0></iframe>` + "\n",
		},
		{
			name:        "default size from options",
			yt:          &YouTube{Name: "youtube", Autoplay: true, Width: 800, Height: 450},
			frontMatter: map[string]any{"id": "x", "height": json.Number("200")},
			want:        `<iframe type="text/html" width="800" height="200" src="https://www.youtube.com/embed/x?autoplay=1" frameborder=0></iframe>` + "\n",
		},
		{
			name:        "escaped id",
			yt:          NewYouTube(),
			frontMatter: map[string]any{"id": `a"b<c`},
			want:        `<iframe type="text/html" width="640" height="360" src="https://www.youtube.com/embed/a&#34;b&lt;c?autoplay=1" frameborder=0></iframe>` + "\n",
		},
		{
			name:        "no autoplay",
			yt:          &YouTube{Name: "youtube", Width: 640, Height: 360, OnError: OnErrorFail},
			frontMatter: map[string]any{"id": "x"},
			want:        `<iframe type="text/html" width="640" height="360" src="https://www.youtube.com/embed/x" frameborder=0></iframe>` + "\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := stream.Collect(tt.yt, []event.Annotated{event.Bare(directive(tt.frontMatter))})
			require.NoError(t, err)
			require.Len(t, out, 1)
			assert.Equal(t, event.RawHTML(tt.want), out[0].Event)
		})
	}
}

func TestYouTubeKeepsLocation(t *testing.T) {
	loc := &event.Location{Line: 4, Column: 2}
	out, err := stream.Collect(NewYouTube(), []event.Annotated{event.At(directive(map[string]any{"id": "x"}), loc)})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, loc, out[0].Location)
}

func TestYouTubeIgnoresOtherEvents(t *testing.T) {
	in := []event.Annotated{
		event.Bare(event.Event{"type": "directive", "name": "vimeo", "front_matter": map[string]any{"id": "x"}}),
		event.Bare(event.Text("youtube")),
	}
	out, err := stream.Collect(NewYouTube(), in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestYouTubeErrors(t *testing.T) {
	_, err := stream.Collect(NewYouTube(), []event.Annotated{event.Bare(directive(map[string]any{}))})
	assert.ErrorIs(t, err, &errors.Error{Kind: errors.KindTransform})
	e, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, "front_matter.id", e.Details["field"])

	_, err = stream.Collect(NewYouTube(), []event.Annotated{event.Bare(directive(map[string]any{"id": "x", "width": "wide"}))})
	assert.ErrorContains(t, err, "invalid video width")

	_, err = stream.Collect(NewYouTube(), []event.Annotated{event.Bare(event.Event{"type": "directive", "name": "youtube"})})
	assert.Error(t, err)
}

func TestYouTubeMarkErrors(t *testing.T) {
	tr := build(t, "youtube", "on_error=mark", "name=video")
	loc := &event.Location{Line: 1}
	out, err := stream.Collect(tr, []event.Annotated{
		event.At(event.Event{"type": "directive", "name": "video", "front_matter": map[string]any{}}, loc),
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, event.TypeError, out[0].Event.Type())
	assert.Equal(t, "invalid video directive", out[0].Event["title"])
	assert.Same(t, loc, out[0].Location)
}

func TestYouTubeRunnerReportsLine(t *testing.T) {
	_, err := runLines(t, NewYouTube(), jsonl.Embedded,
		`{"type":"text","text":"a"}`,
		`{"type":"directive","name":"youtube","front_matter":{}}`,
	)
	e, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindTransform, e.Kind)
	assert.Equal(t, 2, e.Line)
}

func TestYouTubeSizeOptions(t *testing.T) {
	out, err := runLines(t, build(t, "youtube", "width=800", "autoplay=false"), jsonl.Embedded,
		`{"type":"directive","name":"youtube","front_matter":{"id":"x"}}`,
	)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`{"html":"<iframe type=\"text/html\" width=\"800\" height=\"360\" src=\"https://www.youtube.com/embed/x\" frameborder=0></iframe>\n","type":"raw_html"}`,
	}, out)
}

func TestYouTubeBadOptions(t *testing.T) {
	tests := []struct {
		name  string
		pairs []string
		err   string
	}{
		{"on_error", []string{"on_error=ignore"}, "on_error"},
		{"misspelled option", []string{"widht=800"}, "widht"},
		{"negative width", []string{"width=-1"}, "width and height must be positive"},
		{"width not a number", []string{"width=wide"}, "invalid options"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newStage(t, "youtube", tt.pairs...)
			assert.ErrorContains(t, err, tt.err)
		})
	}
}

package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnodel/struckstream/event"
	"github.com/arnodel/struckstream/stream"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Hello World", "hello-world"},
		{"Café Menu", "cafe-menu"},
		{"  Leading and trailing!  ", "leading-and-trailing"},
		{"Version 2.0 -- Notes", "version-2-0-notes"},
		{"Ünïcödé", "unicode"},
		{"???", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.text))
		})
	}
}

func heading(level, text string) []event.Annotated {
	return []event.Annotated{
		event.Bare(event.StartTag("heading"+level, nil)),
		event.Bare(event.Text(text)),
		event.Bare(event.EndTag("heading" + level)),
	}
}

func ids(as []event.Annotated) []string {
	var out []string
	for _, a := range as {
		if attrs, ok := a.Event.Object("attrs"); ok {
			if id, ok := attrs["id"].(string); ok {
				out = append(out, id)
			}
		}
	}
	return out
}

func TestAutoAnchors(t *testing.T) {
	var in []event.Annotated
	in = append(in, heading("1", "Intro")...)
	in = append(in, event.Bare(event.Text("body")))
	in = append(in, heading("2", "Intro")...)
	in = append(in, heading("2", "Intro")...)
	in = append(in,
		event.Bare(event.StartTag("heading3", map[string]any{"id": "custom"})),
		event.Bare(event.Text("Kept")),
		event.Bare(event.EndTag("heading3")),
	)
	in = append(in,
		event.Bare(event.StartTag("heading2", nil)),
		event.Bare(event.Text("Use ")),
		event.Bare(event.Event{"type": "inline_code", "code": "go test"}),
		event.Bare(event.EndTag("heading2")),
	)

	out, err := stream.Collect(NewAutoAnchors(), in)
	require.NoError(t, err)
	require.Len(t, out, len(in))
	assert.Equal(t, []string{"intro", "intro-1", "intro-2", "custom", "use-go-test"}, ids(out))
	assert.Equal(t, event.Text("body"), out[3].Event)
	assert.Nil(t, in[0].Event["attrs"], "input is not modified")
}

func TestAutoAnchorsMaxLevel(t *testing.T) {
	var in []event.Annotated
	in = append(in, heading("1", "Top")...)
	in = append(in, heading("3", "Deep")...)
	out, err := stream.Collect(build(t, "autoanchors", "max_level=2"), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"top"}, ids(out))
}

func TestAutoAnchorsKeepsLocation(t *testing.T) {
	loc := &event.Location{Line: 12}
	in := heading("1", "Title")
	in[0].Location = loc
	out, err := stream.Collect(NewAutoAnchors(), in)
	require.NoError(t, err)
	assert.Same(t, loc, out[0].Location)
}

func TestAutoAnchorsUnterminatedHeading(t *testing.T) {
	in := heading("1", "Cut")[:2]
	out, err := stream.Collect(NewAutoAnchors(), in)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []string{"cut"}, ids(out))
}

func TestAutoAnchorsStreamsOtherEvents(t *testing.T) {
	pulled := 0
	count := stream.Tap(func(event.Annotated) error { pulled++; return nil })
	tr := stream.Chain(count, NewAutoAnchors())
	for range tr.Transform(stream.FromSlice([]event.Annotated{
		event.Bare(event.Text("a")),
		event.Bare(event.Text("b")),
	})) {
		break
	}
	assert.Equal(t, 1, pulled)
}

func TestAutoAnchorsBadOptions(t *testing.T) {
	_, err := newStage(t, "autoanchors", "max_level=9")
	assert.ErrorContains(t, err, "max_level")
}

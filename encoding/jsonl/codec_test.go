package jsonl

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnodel/struckstream/errors"
	"github.com/arnodel/struckstream/event"
)

func TestParseConvention(t *testing.T) {
	c, err := ParseConvention("embedded")
	require.NoError(t, err)
	assert.Equal(t, Embedded, c)

	c, err = ParseConvention("paired")
	require.NoError(t, err)
	assert.Equal(t, Paired, c)

	for _, bad := range []string{"", "auto", "Embedded"} {
		_, err := ParseConvention(bad)
		assert.Error(t, err, bad)
	}
	assert.Equal(t, "paired", Paired.String())
	assert.False(t, Convention(0).Valid())
}

func TestDecodeEmbedded(t *testing.T) {
	codec := NewCodec(Embedded)
	tests := []struct {
		name string
		line string
		want event.Annotated
	}{
		{
			name: "no location",
			line: `{"type":"text","text":"hi"}`,
			want: event.Bare(event.Event{"type": "text", "text": "hi"}),
		},
		{
			name: "null location",
			line: `{"type":"text","text":"hi","location":null}`,
			want: event.Bare(event.Event{"type": "text", "text": "hi"}),
		},
		{
			name: "with location",
			line: `{"type":"text","text":"hi","location":{"line":3,"column":4}}`,
			want: event.At(event.Event{"type": "text", "text": "hi"}, &event.Location{Line: 3, Column: 4}),
		},
		{
			name: "with offsets",
			line: `{"type":"rule","location":{"offset":10,"len":3,"line":2,"column":0}}`,
			want: event.At(event.Event{"type": "rule"}, &event.Location{Line: 2, Offset: 10, Len: 3}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := codec.Decode([]byte(tt.line))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodePaired(t *testing.T) {
	codec := NewCodec(Paired)
	tests := []struct {
		name string
		line string
		want event.Annotated
	}{
		{
			name: "bare event",
			line: `{"type":"text","text":"hi"}`,
			want: event.Bare(event.Event{"type": "text", "text": "hi"}),
		},
		{
			name: "pair with null",
			line: `[{"type":"interpreted_text","role":"api","text":"widgets"}, null]`,
			want: event.Bare(event.Event{"type": "interpreted_text", "role": "api", "text": "widgets"}),
		},
		{
			name: "pair with location",
			line: `[{"type":"text","text":"hi"},{"line":1,"column":0}]`,
			want: event.At(event.Event{"type": "text", "text": "hi"}, &event.Location{Line: 1}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := codec.Decode([]byte(tt.line))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name       string
		convention Convention
		line       string
		kind       errors.Kind
	}{
		{"not json", Embedded, `{"type":`, errors.KindDecode},
		{"empty line", Embedded, ``, errors.KindDecode},
		{"trailing data", Embedded, `{} {}`, errors.KindDecode},
		{"scalar", Embedded, `42`, errors.KindDecode},
		{"pair under embedded", Embedded, `[{"type":"text"},null]`, errors.KindConvention},
		{"embedded under paired", Paired, `{"type":"text","location":{"line":1,"column":0}}`, errors.KindConvention},
		{"location inside pair", Paired, `[{"type":"text","location":{"line":1,"column":0}},null]`, errors.KindConvention},
		{"location inside located pair", Paired, `[{"location":{"line":1,"column":0}},{"line":2,"column":0}]`, errors.KindConvention},
		{"short pair", Paired, `[{"type":"text"}]`, errors.KindDecode},
		{"pair of scalars", Paired, `[1, null]`, errors.KindDecode},
		{"string under paired", Paired, `"x"`, errors.KindDecode},
		{"bad location type", Embedded, `{"location":"1:2"}`, errors.KindDecode},
		{"zero line", Embedded, `{"location":{"line":0,"column":0}}`, errors.KindDecode},
		{"missing line", Paired, `[{},{"column":2}]`, errors.KindDecode},
		{"fractional column", Embedded, `{"location":{"line":1,"column":1.5}}`, errors.KindDecode},
		{"unknown location field", Embedded, `{"location":{"line":1,"column":0,"file":"a.md"}}`, errors.KindDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCodec(tt.convention).Decode([]byte(tt.line))
			require.Error(t, err)
			assert.Equal(t, tt.kind, errors.KindOf(err))
		})
	}
}

func TestEncode(t *testing.T) {
	loc := &event.Location{Line: 2, Column: 5}
	ev := event.Event{"type": "raw_html", "html": "<iframe></iframe>\n"}
	tests := []struct {
		name       string
		convention Convention
		in         event.Annotated
		want       string
	}{
		{"embedded bare", Embedded, event.Bare(ev), `{"html":"<iframe></iframe>\n","type":"raw_html"}`},
		{"embedded located", Embedded, event.At(ev, loc), `{"html":"<iframe></iframe>\n","location":{"line":2,"column":5},"type":"raw_html"}`},
		{"paired bare", Paired, event.Bare(ev), `{"html":"<iframe></iframe>\n","type":"raw_html"}`},
		{"paired located", Paired, event.At(ev, loc), `[{"html":"<iframe></iframe>\n","type":"raw_html"},{"line":2,"column":5}]`},
		{"zero value codec is embedded", 0, event.At(event.Text("x"), loc), `{"location":{"line":2,"column":5},"text":"x","type":"text"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Codec{Convention: tt.convention}.Encode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestEncodeSeparateLocationWins(t *testing.T) {
	ev := event.Event{"type": "text", "location": map[string]any{"line": 9, "column": 9}}
	got, err := NewCodec(Embedded).Encode(event.At(ev, &event.Location{Line: 1}))
	require.NoError(t, err)
	assert.Equal(t, `{"location":{"line":1,"column":0},"type":"text"}`, string(got))
	// The caller's event is not modified.
	assert.Contains(t, ev, "location")
}

func TestEncodeErrors(t *testing.T) {
	_, err := NewCodec(Embedded).Encode(event.Bare(event.Event{"ch": make(chan int)}))
	assert.Equal(t, errors.KindEncode, errors.KindOf(err))

	_, err = NewCodec(Embedded).Encode(event.Annotated{})
	assert.Equal(t, errors.KindEncode, errors.KindOf(err))

	_, err = NewCodec(Paired).Encode(event.Bare(event.Event{"location": nil}))
	assert.Equal(t, errors.KindConvention, errors.KindOf(err))
}

func TestRoundTrip(t *testing.T) {
	events := []event.Event{
		{"type": "text", "text": "hello \"world\" <b>"},
		{"type": "start_tag", "tag": "link", "attrs": map[string]any{"target": "https://example.com", "custom": map[string]any{"data-line": "1"}}},
		{"type": "directive", "name": "youtube", "front_matter": map[string]any{"id": "abc", "width": json.Number("800")}},
		{"type": "checkbox", "checked": true, "items": []any{json.Number("1.5e10"), nil, "x"}},
	}
	locations := []*event.Location{nil, {Line: 1}, {Line: 12, Column: 3, Offset: 100, Len: 7}}

	for _, convention := range []Convention{Embedded, Paired} {
		codec := NewCodec(convention)
		for _, ev := range events {
			for _, loc := range locations {
				in := event.At(ev, loc)
				line, err := codec.Encode(in)
				require.NoError(t, err)
				out, err := codec.Decode(line)
				require.NoError(t, err, string(line))
				assert.Equal(t, in, out, "%s: %s", convention, line)
			}
		}
	}
}

func TestDecodeKeepsNumbersVerbatim(t *testing.T) {
	codec := NewCodec(Embedded)
	line := `{"big":12345678901234567890,"f":1.50,"type":"x"}`
	a, err := codec.Decode([]byte(line))
	require.NoError(t, err)
	out, err := codec.Encode(a)
	require.NoError(t, err)
	assert.Equal(t, line, string(out))
}

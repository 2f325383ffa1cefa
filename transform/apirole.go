package transform

import (
	"fmt"
	"strings"

	"github.com/arnodel/struckstream/event"
	"github.com/arnodel/struckstream/stage"
	"github.com/arnodel/struckstream/stream"
)

// DefaultAPITargetFormat is the link target of an api role.  The trailing
// quote is part of the established output.
const DefaultAPITargetFormat = "https://example.com/api/%s'"

// APIRole expands interpreted text with the api role into a link, e.g.
//
//	{"type": "interpreted_text", "role": "api", "text": "widgets"}
//
// becomes the three events
//
//	{"type": "start_tag", "tag": "link", "attrs": {"target": "https://example.com/api/widgets'", "class": "api-link"}}
//	{"type": "text", "text": "widgets"}
//	{"type": "end_tag", "tag": "link"}
//
// all at the location of the interpreted text.
type APIRole struct {
	Role         string `yaml:"role"`
	TargetFormat string `yaml:"target_format"`
	Class        string `yaml:"class"`
}

// NewAPIRole returns an APIRole transform with the default settings.
func NewAPIRole() *APIRole {
	return &APIRole{Role: "api", TargetFormat: DefaultAPITargetFormat, Class: "api-link"}
}

var _ stream.Transformer = &APIRole{}

// Transform implements stream.Transformer.
func (r *APIRole) Transform(in stream.Seq) stream.Seq2 {
	return stream.FlatMap(r.expand).Transform(in)
}

func (r *APIRole) expand(a event.Annotated) ([]event.Annotated, error) {
	if a.Event.Type() != event.TypeInterpretedText {
		return []event.Annotated{a}, nil
	}
	if role, _ := a.Event.String("role"); role != r.Role {
		return []event.Annotated{a}, nil
	}
	text, _ := a.Event.String("text")
	attrs := map[string]any{"target": r.target(text)}
	if r.Class != "" {
		attrs["class"] = r.Class
	}
	return []event.Annotated{
		a.Derive(event.StartTag("link", attrs)),
		a.Derive(event.Text(text)),
		a.Derive(event.EndTag("link")),
	}, nil
}

func (r *APIRole) target(text string) string {
	if strings.Contains(r.TargetFormat, "%s") {
		return fmt.Sprintf(r.TargetFormat, text)
	}
	return r.TargetFormat + text
}

func init() {
	stage.Register("api_role", "expand api roles into links to the API reference", func(opts stage.Options) (stream.Transformer, error) {
		r := NewAPIRole()
		if err := opts.Decode(r); err != nil {
			return nil, err
		}
		if r.Role == "" {
			return nil, fmt.Errorf("role must not be empty")
		}
		return r, nil
	})
}

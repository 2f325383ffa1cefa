package transform

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/arnodel/struckstream/errors"
	"github.com/arnodel/struckstream/event"
	"github.com/arnodel/struckstream/stage"
	"github.com/arnodel/struckstream/stream"
)

// DefaultTheme is the style used to color code blocks.
const DefaultTheme = "github"

// Highlight turns code blocks with a language into highlighted html:
//
//	{"type": "code_block", "language": "go", "code": "package main\n"}
//
// becomes a raw_html event holding <pre><code>...</code></pre>.  Code blocks
// without a language are left alone, an unknown language is highlighted as
// plain text.
type Highlight struct {
	Theme string `yaml:"theme"`
	// Classes emits CSS classes instead of inline styles.
	Classes bool `yaml:"classes"`

	style     *chroma.Style
	formatter *chromahtml.Formatter
}

var _ stream.Transformer = &Highlight{}

// NewHighlight returns a Highlight transform with the default settings.
func NewHighlight() *Highlight {
	return &Highlight{Theme: DefaultTheme}
}

func (h *Highlight) init() error {
	style, ok := styles.Registry[h.Theme]
	if !ok {
		return fmt.Errorf("unknown theme %q", h.Theme)
	}
	h.style = style
	h.formatter = chromahtml.New(
		chromahtml.WithClasses(h.Classes),
		chromahtml.PreventSurroundingPre(true),
	)
	return nil
}

// Transform implements stream.Transformer.
func (h *Highlight) Transform(in stream.Seq) stream.Seq2 {
	if h.formatter == nil {
		if err := h.init(); err != nil {
			return func(yield func(event.Annotated, error) bool) {
				yield(event.Annotated{}, err)
			}
		}
	}
	return stream.Map(h.highlight).Transform(in)
}

func (h *Highlight) highlight(a event.Annotated) (event.Annotated, error) {
	if a.Event.Type() != event.TypeCodeBlock {
		return a, nil
	}
	language, _ := a.Event.String("language")
	if language == "" {
		return a, nil
	}
	code, _ := a.Event.String("code")
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	tokens, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		return a, errors.Transform("cannot highlight code block", err).WithDetail("language", language)
	}
	var b strings.Builder
	b.WriteString("<pre><code>")
	if err := h.formatter.Format(&b, h.style, tokens); err != nil {
		return a, errors.Transform("cannot highlight code block", err).WithDetail("language", language)
	}
	b.WriteString("</code></pre>")
	return a.Derive(event.RawHTML(b.String())), nil
}

func init() {
	stage.Register("highlight", "highlight code blocks into html", func(opts stage.Options) (stream.Transformer, error) {
		h := NewHighlight()
		if err := opts.Decode(h); err != nil {
			return nil, err
		}
		if err := h.init(); err != nil {
			return nil, err
		}
		return h, nil
	})
}

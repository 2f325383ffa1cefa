package transform

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	xtransform "golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/arnodel/struckstream/event"
	"github.com/arnodel/struckstream/stage"
	"github.com/arnodel/struckstream/stream"
)

// AutoAnchors gives headings an id made from their text, so that they can be
// linked to.  E.g.
//
//	{"type": "start_tag", "tag": "heading2"}
//	{"type": "text", "text": "Café Menu"}
//	{"type": "end_tag", "tag": "heading2"}
//
// becomes
//
//	{"type": "start_tag", "tag": "heading2", "attrs": {"id": "cafe-menu"}}
//	{"type": "text", "text": "Café Menu"}
//	{"type": "end_tag", "tag": "heading2"}
//
// Headings which already have an id are left alone.  When two headings have
// the same text, the second one gets the id "cafe-menu-1" and so on.
//
// The events of a heading are held back until its end tag is reached, other
// events stream through.
type AutoAnchors struct {
	// Headings up to this level get an anchor.
	MaxLevel int `yaml:"max_level"`
}

// NewAutoAnchors returns an AutoAnchors transform for all heading levels.
func NewAutoAnchors() *AutoAnchors {
	return &AutoAnchors{MaxLevel: 6}
}

var _ stream.Transformer = &AutoAnchors{}

// Transform implements stream.Transformer.
func (t *AutoAnchors) Transform(in stream.Seq) stream.Seq2 {
	return func(yield func(event.Annotated, error) bool) {
		var (
			used    = map[string]int{}
			heading []event.Annotated
			tag     string
			text    strings.Builder
		)
		flush := func() bool {
			if len(heading) == 0 {
				return true
			}
			start := heading[0]
			ev := start.Event.Clone()
			attrs, ok := ev.Object("attrs")
			if !ok {
				attrs = map[string]any{}
				ev["attrs"] = attrs
			}
			attrs["id"] = uniqueID(used, Slugify(text.String()))
			heading[0] = start.Derive(ev)
			for _, a := range heading {
				if !yield(a, nil) {
					return false
				}
			}
			heading = nil
			tag = ""
			text.Reset()
			return true
		}
		for a := range in {
			if heading != nil {
				heading = append(heading, a)
				switch a.Event.Type() {
				case event.TypeText:
					s, _ := a.Event.String("text")
					text.WriteString(s)
				case event.TypeInlineCode:
					s, _ := a.Event.String("code")
					text.WriteString(s)
				case event.TypeEndTag:
					if endTag, _ := a.Event.String("tag"); endTag == tag {
						if !flush() {
							return
						}
					}
				}
				continue
			}
			if t.wantsAnchor(a.Event) {
				heading = []event.Annotated{a}
				tag, _ = a.Event.String("tag")
				continue
			}
			if !yield(a, nil) {
				return
			}
		}
		flush()
	}
}

func (t *AutoAnchors) wantsAnchor(ev event.Event) bool {
	if ev.Type() != event.TypeStartTag {
		return false
	}
	tag, _ := ev.String("tag")
	level, ok := headingLevel(tag)
	if !ok || level > t.MaxLevel {
		return false
	}
	if attrs, ok := ev.Object("attrs"); ok {
		if id, _ := attrs["id"].(string); id != "" {
			return false
		}
	}
	return true
}

// headingLevel returns n for a "headingN" tag.
func headingLevel(tag string) (int, bool) {
	s, ok := strings.CutPrefix(tag, "heading")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 6 {
		return 0, false
	}
	return n, true
}

func uniqueID(used map[string]int, id string) string {
	if id == "" {
		id = "section"
	}
	n, seen := used[id]
	used[id] = n + 1
	if !seen {
		return id
	}
	return fmt.Sprintf("%s-%d", id, n)
}

// Slugify turns text into an identifier made of lower case letters, digits
// and dashes.  Accents are removed.
func Slugify(text string) string {
	stripMarks := xtransform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := xtransform.String(stripMarks, text)
	if err != nil {
		folded = text
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		} else {
			dash = true
		}
	}
	return b.String()
}

func init() {
	stage.Register("autoanchors", "give headings an id made from their text", func(opts stage.Options) (stream.Transformer, error) {
		t := NewAutoAnchors()
		if err := opts.Decode(t); err != nil {
			return nil, err
		}
		if t.MaxLevel < 1 || t.MaxLevel > 6 {
			return nil, fmt.Errorf("max_level must be between 1 and 6 (got %d)", t.MaxLevel)
		}
		return t, nil
	})
}

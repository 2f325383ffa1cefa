package event

// An Event is one unit of a document's structured representation, e.g. a
// start tag, a run of text or a directive.  It is decoded from a JSON object
// such as
//
//	{"type": "text", "text": "Hello"}
//
// The only field every stage agrees to read is "type", which discriminates
// between variants.  Everything else is up to the stages that produce and
// consume the event.
type Event map[string]any

// Conventional values of the "type" field.
const (
	TypeStartTag        = "start_tag"
	TypeEndTag          = "end_tag"
	TypeText            = "text"
	TypeDirective       = "directive"
	TypeInterpretedText = "interpreted_text"
	TypeRawHTML         = "raw_html"
	TypeInlineCode      = "inline_code"
	TypeCodeBlock       = "code_block"
	TypeSoftBreak       = "soft_break"
	TypeHardBreak       = "hard_break"
	TypeError           = "error"
)

// Type returns the value of the "type" field, or "" if there is none or it
// is not a string.
func (e Event) Type() string {
	s, _ := e.String("type")
	return s
}

// String returns the value of a string field.
func (e Event) String(key string) (string, bool) {
	s, ok := e[key].(string)
	return s, ok
}

// Object returns the value of a field holding a JSON object.
func (e Event) Object(key string) (map[string]any, bool) {
	m, ok := e[key].(map[string]any)
	return m, ok
}

// Clone returns a deep copy of the event, so that it can be modified without
// affecting the original.
func (e Event) Clone() Event {
	if e == nil {
		return nil
	}
	return Event(cloneMap(e))
}

func cloneMap(m map[string]any) map[string]any {
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = cloneValue(v)
	}
	return c
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case Event:
		return Event(cloneMap(x))
	case []any:
		c := make([]any, len(x))
		for i, item := range x {
			c[i] = cloneValue(item)
		}
		return c
	default:
		return v
	}
}

// StartTag makes a start_tag event.  attrs may be nil.
func StartTag(tag string, attrs map[string]any) Event {
	ev := Event{"type": TypeStartTag, "tag": tag}
	if len(attrs) > 0 {
		ev["attrs"] = attrs
	}
	return ev
}

// EndTag makes an end_tag event.
func EndTag(tag string) Event {
	return Event{"type": TypeEndTag, "tag": tag}
}

// Text makes a text event.
func Text(text string) Event {
	return Event{"type": TypeText, "text": text}
}

// RawHTML makes a raw_html event.
func RawHTML(html string) Event {
	return Event{"type": TypeRawHTML, "html": html}
}

// Error makes an error event, which stages can emit instead of failing the
// whole stream.  description may be empty.
func Error(title, description string) Event {
	ev := Event{"type": TypeError, "title": title}
	if description != "" {
		ev["description"] = description
	}
	return ev
}

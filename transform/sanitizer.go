package transform

import (
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/arnodel/struckstream/event"
	"github.com/arnodel/struckstream/stage"
	"github.com/arnodel/struckstream/stream"
)

// DefaultURLSchemes are the URL schemes permitted in links and images.
var DefaultURLSchemes = []string{
	"ftp", "ftps", "geo", "http", "https", "im", "irc", "ircs", "magnet", "mailto",
	"mms", "mx", "news", "nntp", "sip", "sms", "smsto", "ssh", "tel", "url", "webcal",
	"wtai", "xmpp",
}

// HTMLSanitizer removes unsafe markup from raw_html events.  Scripts and
// event handler attributes are dropped, as are links and images whose URL
// scheme is not permitted.
//
// Each event is sanitized on its own, so an element opened in one raw_html
// event and closed in another keeps both tags, but the content of a script
// or style element split that way is only dropped from the first event.
type HTMLSanitizer struct {
	// LinkRel is added to the rel attribute of links, e.g. "nofollow".
	LinkRel    string   `yaml:"link_rel"`
	URLSchemes []string `yaml:"url_schemes"`
	// AllowClass keeps class attributes.
	AllowClass bool `yaml:"allow_class"`
	// AllowStyle keeps style attributes and style elements.
	AllowStyle    bool `yaml:"allow_style"`
	AllowComments bool `yaml:"allow_comments"`

	policy *bluemonday.Policy
}

var _ stream.Transformer = &HTMLSanitizer{}

// NewHTMLSanitizer returns an HTMLSanitizer with the default settings.
func NewHTMLSanitizer() *HTMLSanitizer {
	return &HTMLSanitizer{
		URLSchemes:    DefaultURLSchemes,
		AllowComments: true,
	}
}

// Policy builds the sanitizing policy for the current settings.
func (s *HTMLSanitizer) Policy() (*bluemonday.Policy, error) {
	p := bluemonday.NewPolicy()
	p.AllowStandardAttributes()
	p.AllowNoAttrs().OnElements(
		"abbr", "acronym", "article", "aside", "b", "bdi", "bdo", "blockquote", "br",
		"caption", "center", "cite", "code", "col", "colgroup", "data", "dd", "del",
		"details", "dfn", "div", "dl", "dt", "em", "figcaption", "figure", "footer",
		"h1", "h2", "h3", "h4", "h5", "h6", "header", "hgroup", "hr", "i", "ins", "kbd",
		"li", "mark", "nav", "ol", "p", "pre", "q", "rp", "rt", "rtc", "ruby", "s",
		"samp", "small", "span", "strike", "strong", "sub", "summary", "sup", "time",
		"tt", "u", "ul", "var", "wbr",
	)
	p.AllowLists()
	p.AllowTables()
	p.AllowImages()
	p.AllowAttrs("href").OnElements("a", "area")
	p.AllowAttrs("hreflang").OnElements("a")
	p.AllowAttrs("cite").OnElements("blockquote", "del", "ins", "q")
	p.AllowAttrs("datetime").OnElements("del", "ins", "time")

	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(true)
	p.AllowURLSchemes(s.URLSchemes...)

	for _, rel := range strings.Fields(s.LinkRel) {
		switch rel {
		case "nofollow":
			p.RequireNoFollowOnLinks(true)
		case "noreferrer":
			p.RequireNoReferrerOnLinks(true)
		default:
			return nil, fmt.Errorf("unsupported link_rel value %q (use nofollow, noreferrer)", rel)
		}
	}
	if s.AllowClass {
		p.AllowStyling()
	}
	if s.AllowStyle {
		p.AllowAttrs("style").Globally()
		p.AllowNoAttrs().OnElements("style")
		p.AllowElementsContent("style")
		// Needed for the content of style elements to be written unescaped.
		p.AllowUnsafe(true)
	}
	if s.AllowComments {
		p.AllowComments()
	}
	return p, nil
}

// Transform implements stream.Transformer.
func (s *HTMLSanitizer) Transform(in stream.Seq) stream.Seq2 {
	if s.policy == nil {
		p, err := s.Policy()
		if err != nil {
			return func(yield func(event.Annotated, error) bool) {
				yield(event.Annotated{}, err)
			}
		}
		s.policy = p
	}
	return stream.Map(s.sanitize).Transform(in)
}

func (s *HTMLSanitizer) sanitize(a event.Annotated) (event.Annotated, error) {
	if a.Event.Type() != event.TypeRawHTML {
		return a, nil
	}
	raw, _ := a.Event.String("html")
	clean := s.policy.Sanitize(raw)
	if clean == raw {
		return a, nil
	}
	ev := a.Event.Clone()
	ev["html"] = clean
	return a.Derive(ev), nil
}

func init() {
	stage.Register("html_sanitizer", "remove unsafe markup from raw html", func(opts stage.Options) (stream.Transformer, error) {
		s := NewHTMLSanitizer()
		if err := opts.Decode(s); err != nil {
			return nil, err
		}
		p, err := s.Policy()
		if err != nil {
			return nil, err
		}
		s.policy = p
		return s, nil
	})
}

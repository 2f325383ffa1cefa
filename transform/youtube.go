package transform

import (
	"fmt"
	"html"

	"github.com/spf13/cast"

	"github.com/arnodel/struckstream/errors"
	"github.com/arnodel/struckstream/event"
	"github.com/arnodel/struckstream/stage"
	"github.com/arnodel/struckstream/stream"
)

// Default size of an embedded video.
const (
	DefaultVideoWidth  = 640
	DefaultVideoHeight = 360
)

// YouTube expands video directives into an embedded player.
//
// E.g.
//
//	{"type": "directive", "name": "youtube", "front_matter": {"id": "abc123"}}
//
// becomes
//
//	{"type": "raw_html", "html": "<iframe type=\"text/html\" width=\"640\" height=\"360\" src=\"https://www.youtube.com/embed/abc123?autoplay=1\" frameborder=0></iframe>\n"}
//
// The width and height are read from the front matter and default to the
// Width and Height options.
type YouTube struct {
	// Name of the directive to expand.
	Name     string `yaml:"name"`
	Autoplay bool   `yaml:"autoplay"`
	// Size of players whose directive does not give one.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	// OnError is "fail" (the default) to stop the stream when a directive
	// has no video id, or "mark" to replace it with an error event.
	OnError string `yaml:"on_error"`
}

// NewYouTube returns a YouTube transform with the default settings.
func NewYouTube() *YouTube {
	return &YouTube{
		Name:     "youtube",
		Autoplay: true,
		Width:    DefaultVideoWidth,
		Height:   DefaultVideoHeight,
		OnError:  OnErrorFail,
	}
}

// Values of the on_error option.
const (
	OnErrorFail = "fail"
	OnErrorMark = "mark"
)

var _ stream.Transformer = &YouTube{}

// Transform implements stream.Transformer.
func (y *YouTube) Transform(in stream.Seq) stream.Seq2 {
	return stream.Map(y.expand).Transform(in)
}

func (y *YouTube) expand(a event.Annotated) (event.Annotated, error) {
	if a.Event.Type() != event.TypeDirective {
		return a, nil
	}
	if name, _ := a.Event.String("name"); name != y.Name {
		return a, nil
	}
	frontMatter, _ := a.Event.Object("front_matter")
	player, err := y.player(frontMatter)
	if err != nil {
		if y.OnError == OnErrorMark {
			return a.Derive(event.Error("invalid "+y.Name+" directive", err.Error())), nil
		}
		return a, err
	}
	return a.Derive(event.RawHTML(player)), nil
}

func (y *YouTube) player(frontMatter map[string]any) (string, error) {
	rawID, ok := frontMatter["id"]
	if !ok || rawID == nil {
		return "", errors.MissingField("front_matter.id")
	}
	id, err := cast.ToStringE(rawID)
	if err != nil || id == "" {
		return "", errors.Transform("invalid video id", err).WithDetail("field", "front_matter.id")
	}
	width, err := dimension(frontMatter, "width", y.Width)
	if err != nil {
		return "", err
	}
	height, err := dimension(frontMatter, "height", y.Height)
	if err != nil {
		return "", err
	}
	query := ""
	if y.Autoplay {
		query = "?autoplay=1"
	}
	return fmt.Sprintf(
		`<iframe type="text/html" width="%d" height="%d" src="https://www.youtube.com/embed/%s%s" frameborder=0></iframe>`+"\n",
		width, height, html.EscapeString(id), query,
	), nil
}

// dimension reads a size from the front matter.  Numbers and numeric strings
// are accepted; an absent, empty or zero value means the default.
func dimension(frontMatter map[string]any, key string, dflt int) (int, error) {
	v := frontMatter[key]
	if v == nil || v == "" {
		return dflt, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil || n < 0 {
		return 0, errors.Transform("invalid video "+key, err).WithDetail("field", "front_matter."+key).WithDetail("value", v)
	}
	if n == 0 {
		return dflt, nil
	}
	return n, nil
}

func init() {
	stage.Register("youtube", "expand youtube directives into an embedded player", func(opts stage.Options) (stream.Transformer, error) {
		y := NewYouTube()
		if err := opts.Decode(y); err != nil {
			return nil, err
		}
		switch y.OnError {
		case OnErrorFail, OnErrorMark:
		default:
			return nil, fmt.Errorf("on_error must be %s or %s (got %q)", OnErrorFail, OnErrorMark, y.OnError)
		}
		if y.Width <= 0 || y.Height <= 0 {
			return nil, fmt.Errorf("width and height must be positive")
		}
		return y, nil
	})
}

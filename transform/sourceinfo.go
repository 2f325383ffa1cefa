package transform

import (
	"strconv"

	"github.com/arnodel/struckstream/event"
	"github.com/arnodel/struckstream/stage"
	"github.com/arnodel/struckstream/stream"
)

// SourceInfo records the source location of start tags as custom
// attributes, so that the rendered output can be mapped back to the source:
//
//	{"type": "start_tag", "tag": "p", "location": {"line": 3, "column": 0}}
//
// becomes
//
//	{"type": "start_tag", "tag": "p", "attrs": {"custom": {"data-line": "3", "data-column": "0"}}, "location": {"line": 3, "column": 0}}
//
// Events without a location are unchanged.
var SourceInfo = stream.Map(attachSourceInfo)

func attachSourceInfo(a event.Annotated) (event.Annotated, error) {
	if a.Location == nil || a.Event.Type() != event.TypeStartTag {
		return a, nil
	}
	ev := a.Event.Clone()
	attrs, ok := ev.Object("attrs")
	if !ok {
		attrs = map[string]any{}
		ev["attrs"] = attrs
	}
	custom, ok := attrs["custom"].(map[string]any)
	if !ok {
		custom = map[string]any{}
		attrs["custom"] = custom
	}
	custom["data-line"] = strconv.Itoa(a.Location.Line)
	custom["data-column"] = strconv.Itoa(a.Location.Column)
	return a.Derive(ev), nil
}

func init() {
	stage.Register("source_info", "attach the source line and column to start tags", func(opts stage.Options) (stream.Transformer, error) {
		if err := opts.Decode(&struct{}{}); err != nil {
			return nil, err
		}
		return SourceInfo, nil
	})
}

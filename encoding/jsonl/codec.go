package jsonl

import (
	"bytes"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/arnodel/struckstream/errors"
	"github.com/arnodel/struckstream/event"
)

// A Codec converts between one line of the wire format and an annotated
// event, according to its Convention.  The zero value uses
// DefaultConvention.
type Codec struct {
	Convention Convention
}

// NewCodec returns a codec for the given convention.
func NewCodec(c Convention) Codec {
	return Codec{Convention: c}
}

func (c Codec) convention() Convention {
	if c.Convention.Valid() {
		return c.Convention
	}
	return DefaultConvention
}

// Decode parses one line.  Numbers are kept as json.Number so that they are
// written back exactly as they were read.
func (c Codec) Decode(line []byte) (event.Annotated, error) {
	var value any
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	if err := dec.Decode(&value); err != nil {
		return event.Annotated{}, errors.Decode("invalid JSON", err)
	}
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		return event.Annotated{}, errors.Decode("trailing data after JSON value", err)
	}

	switch c.convention() {
	case Paired:
		return decodePaired(value)
	default:
		return decodeEmbedded(value)
	}
}

func decodeEmbedded(value any) (event.Annotated, error) {
	switch v := value.(type) {
	case map[string]any:
		ev := event.Event(v)
		raw, ok := ev[LocationKey]
		if !ok {
			return event.Bare(ev), nil
		}
		delete(ev, LocationKey)
		loc, err := decodeLocation(raw)
		if err != nil {
			return event.Annotated{}, err
		}
		return event.At(ev, loc), nil
	case []any:
		return event.Annotated{}, errors.Convention("paired line under embedded convention")
	default:
		return event.Annotated{}, errors.Decode(fmt.Sprintf("event must be an object, got %s", jsonKind(value)), nil)
	}
}

func decodePaired(value any) (event.Annotated, error) {
	switch v := value.(type) {
	case map[string]any:
		if _, ok := v[LocationKey]; ok {
			return event.Annotated{}, errors.Convention("embedded location under paired convention")
		}
		return event.Bare(event.Event(v)), nil
	case []any:
		if len(v) != 2 {
			return event.Annotated{}, errors.Decode(fmt.Sprintf("paired line must have 2 elements, got %d", len(v)), nil)
		}
		m, ok := v[0].(map[string]any)
		if !ok {
			return event.Annotated{}, errors.Decode(fmt.Sprintf("event must be an object, got %s", jsonKind(v[0])), nil)
		}
		if _, ok := m[LocationKey]; ok {
			return event.Annotated{}, errors.Convention("embedded location inside a paired line")
		}
		loc, err := decodeLocation(v[1])
		if err != nil {
			return event.Annotated{}, err
		}
		return event.At(event.Event(m), loc), nil
	default:
		return event.Annotated{}, errors.Decode(fmt.Sprintf("event must be an object or a pair, got %s", jsonKind(value)), nil)
	}
}

func decodeLocation(raw any) (*event.Location, error) {
	if raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.Decode(fmt.Sprintf("location must be an object or null, got %s", jsonKind(raw)), nil)
	}
	var loc event.Location
	for k, v := range m {
		var dst *int
		switch k {
		case "line":
			dst = &loc.Line
		case "column":
			dst = &loc.Column
		case "offset":
			dst = &loc.Offset
		case "len":
			dst = &loc.Len
		default:
			return nil, errors.Decode(fmt.Sprintf("unknown location field %q", k), nil)
		}
		n, ok := v.(json.Number)
		if !ok {
			return nil, errors.Decode(fmt.Sprintf("location %s must be a number", k), nil)
		}
		i, err := n.Int64()
		if err != nil {
			return nil, errors.Decode(fmt.Sprintf("location %s must be an integer", k), err)
		}
		*dst = int(i)
	}
	if _, ok := m["line"]; !ok {
		return nil, errors.Decode("location without line", nil)
	}
	if err := loc.Validate(); err != nil {
		return nil, errors.Decode("invalid location", err)
	}
	return &loc, nil
}

// Encode produces one line (without the trailing newline).
func (c Codec) Encode(a event.Annotated) ([]byte, error) {
	if a.Event == nil {
		return nil, errors.Encode("nil event", nil)
	}
	var value any
	switch c.convention() {
	case Paired:
		if _, ok := a.Event[LocationKey]; ok {
			return nil, errors.Convention("event carries an embedded location under paired convention")
		}
		if a.Location == nil {
			value = map[string]any(a.Event)
		} else {
			value = []any{map[string]any(a.Event), a.Location}
		}
	default:
		ev := make(map[string]any, len(a.Event)+1)
		for k, v := range a.Event {
			ev[k] = v
		}
		delete(ev, LocationKey)
		if a.Location != nil {
			ev[LocationKey] = a.Location
		}
		value = ev
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return nil, errors.Encode("cannot serialize event", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

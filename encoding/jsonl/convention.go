package jsonl

import "fmt"

// ProtocolVersion is the version of the line protocol implemented by this
// package.  Both conventions below belong to it.
const ProtocolVersion = 1

// LocationKey is the event field that holds the location under the Embedded
// convention.
const LocationKey = "location"

// A Convention says how locations are represented on the wire.  All stages
// of a pipeline must use the same one: a stage expecting embedded locations
// will not find them in a paired line and vice versa.  The codec reports
// lines that look like they use the other convention as errors rather than
// guessing.
type Convention int

const (
	// Embedded stores the location inside the event object:
	//
	//	{"type": "text", "text": "hi", "location": {"line": 1, "column": 0}}
	Embedded Convention = iota + 1

	// Paired writes [event, location] when there is a location, and the bare
	// event otherwise:
	//
	//	[{"type": "text", "text": "hi"}, {"line": 1, "column": 0}]
	Paired
)

// DefaultConvention is the convention used when none is configured.
const DefaultConvention = Embedded

// ParseConvention parses the name of a convention.
func ParseConvention(s string) (Convention, error) {
	switch s {
	case "embedded":
		return Embedded, nil
	case "paired":
		return Paired, nil
	default:
		return 0, fmt.Errorf("invalid convention %q (use embedded or paired)", s)
	}
}

func (c Convention) String() string {
	switch c {
	case Embedded:
		return "embedded"
	case Paired:
		return "paired"
	default:
		return fmt.Sprintf("Convention(%d)", int(c))
	}
}

// Valid reports whether c is one of the known conventions.
func (c Convention) Valid() bool {
	return c == Embedded || c == Paired
}

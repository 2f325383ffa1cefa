package event

import "fmt"

// Location says where in the original source document an event comes from.
type Location struct {
	// Line in the source document (1 indexed).
	Line int `json:"line"`
	// Column in the source document (0 indexed).
	Column int `json:"column"`
	// Byte offset within the source document, if known.
	Offset int `json:"offset,omitempty"`
	// Length in bytes in the source document, if known.
	Len int `json:"len,omitempty"`
}

// Validate checks the location is within the allowed ranges.
func (l Location) Validate() error {
	switch {
	case l.Line < 1:
		return fmt.Errorf("location line must be >= 1, got %d", l.Line)
	case l.Column < 0:
		return fmt.Errorf("location column must be >= 0, got %d", l.Column)
	case l.Offset < 0:
		return fmt.Errorf("location offset must be >= 0, got %d", l.Offset)
	case l.Len < 0:
		return fmt.Errorf("location len must be >= 0, got %d", l.Len)
	}
	return nil
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Annotated is an event together with its optional location.  This is the
// unit that flows through a stage.  A nil Location means the location is
// absent.
//
// When a stage synthesizes new events from an existing one it must say what
// happens to the location: Derive keeps it, At sets another one and Bare
// drops it.
type Annotated struct {
	Event    Event
	Location *Location
}

// Derive returns ev annotated with the same location as a.
func (a Annotated) Derive(ev Event) Annotated {
	return Annotated{Event: ev, Location: a.Location}
}

// Bare returns ev without any location.
func Bare(ev Event) Annotated {
	return Annotated{Event: ev}
}

// At returns ev annotated with loc (which may be nil).
func At(ev Event, loc *Location) Annotated {
	return Annotated{Event: ev, Location: loc}
}

package registry

import (
	"fmt"
	"strconv"
)

// SchemaError is returned when an element or attribute the generator
// relies on is missing or malformed.
type SchemaError struct {
	// Element is the tag of the offending element, e.g. "type".
	Element string
	// Name identifies the element, if known.
	Name string
	Msg  string
}

func (e *SchemaError) Error() string {
	if e.Name != "" {
		return "schema: <" + e.Element + " " + strconv.Quote(e.Name) + ">: " + e.Msg
	}
	return "schema: <" + e.Element + ">: " + e.Msg
}

// SchemaErrorf formats a [SchemaError].
func SchemaErrorf(element, name string, format string, args ...any) *SchemaError {
	return &SchemaError{Element: element, Name: name, Msg: fmt.Sprintf(format, args...)}
}

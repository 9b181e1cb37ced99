package thunk

import (
	"fmt"
	"io"
)

// Dump writes a one-line description of v to w.
func Dump(w io.Writer, v Value) error {
	var line string
	switch v := v.(type) {
	case *Func:
		if v == nil {
			line = "<nil>"
		} else {
			line = v.String()
		}
	case Scalar:
		line = v.String()
	case *Scalar:
		if v == nil {
			line = "<nil>"
		} else {
			line = v.String()
		}
	default:
		line = "<nil>"
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

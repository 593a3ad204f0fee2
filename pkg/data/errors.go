package data

import (
	"errors"
	"fmt"
)

// FormatError reports a corrupt compiled interface: truncated input,
// out-of-range or wrong-category references, or trailing bytes.
type FormatError struct {
	Locator string
	Offset  int
	Msg     string
}

func (e *FormatError) Error() string {
	if e.Locator == "" {
		return fmt.Sprintf("malformed interface at offset %d: %s", e.Offset, e.Msg)
	}
	return fmt.Sprintf("malformed interface %s at offset %d: %s", e.Locator, e.Offset, e.Msg)
}

// UnknownFormatError is returned when a compiled interface carries a format
// version this codec does not understand.
type UnknownFormatError struct {
	Locator string
	Got     int32
	Want    int32
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown interface format version %d in %q (want %d)", e.Got, e.Locator, e.Want)
}

// IsFormatError reports whether err is or wraps a FormatError or an
// UnknownFormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	var ue *UnknownFormatError
	return errors.As(err, &fe) || errors.As(err, &ue)
}

package table

import "fmt"

// MissingHeaderError names the first required column absent from a table.
type MissingHeaderError struct {
	Header string
}

func (e *MissingHeaderError) Error() string {
	return fmt.Sprintf("missing required header %q", e.Header)
}

// RequireHeaders checks that every required header is present, in any order.
func RequireHeaders(t *Table, required []string) error {
	for _, h := range required {
		if t == nil || !t.Has(h) {
			return &MissingHeaderError{Header: h}
		}
	}
	return nil
}

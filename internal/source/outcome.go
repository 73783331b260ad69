package source

import (
	"errors"

	"github.com/andresuchdata/fba-replenish/internal/table"
)

// Outcome is the result of loading one source: either a validated table or
// the error that kept it out.
type Outcome struct {
	Kind  Kind
	Name  string
	Table *table.Table
	Err   error
}

// Ok reports whether the source produced a validated table.
func (o Outcome) Ok() bool {
	return o.Err == nil && o.Table != nil
}

// MissingHeader returns the missing column name when validation failed on
// headers.
func (o Outcome) MissingHeader() (string, bool) {
	var mh *table.MissingHeaderError
	if errors.As(o.Err, &mh) {
		return mh.Header, true
	}
	return "", false
}

// Check validates an already parsed table against the schema.
func Check(kind Kind, name string, t *table.Table, schema Schema) Outcome {
	if err := table.RequireHeaders(t, schema[kind]); err != nil {
		return Outcome{Kind: kind, Name: name, Err: err}
	}
	return Outcome{Kind: kind, Name: name, Table: t}
}

// FromBytes parses and validates raw file content.
func FromBytes(kind Kind, name string, data []byte, schema Schema) Outcome {
	t, err := table.ParseBytes(name, data)
	if err != nil {
		return Outcome{Kind: kind, Name: name, Err: err}
	}
	return Check(kind, name, t, schema)
}

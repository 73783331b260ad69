package domain

import "strings"

// View selects a subset of a result set for listing and export.
type View string

const (
	ViewShipment View = "shipment"
	ViewRecall   View = "recall"
	ViewFull     View = "full"
)

var viewAliases = map[string]View{
	"shipment": ViewShipment,
	"send":     ViewShipment,
	"recall":   ViewRecall,
	"full":     ViewFull,
	"all":      ViewFull,
}

// ParseView returns the view for a given label (case-insensitive).
func ParseView(label string) (View, bool) {
	v, ok := viewAliases[strings.ToLower(strings.TrimSpace(label))]

	return v, ok
}

// Includes reports whether the record belongs to the view.
func (v View) Includes(r Record) bool {
	switch v {
	case ViewShipment:
		return r.Decision == DecisionSend && r.SendQty > 0
	case ViewRecall:
		return r.RecallQty > 0
	default:
		return true
	}
}

package source

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/fba-replenish/internal/config"
)

// Kind names one of the four inputs a report needs.
type Kind string

const (
	KindSale    Kind = "sale"
	KindFBA     Kind = "fba"
	KindUniware Kind = "uniware"
	KindMapping Kind = "mapping"
)

// Kinds lists every source in reporting order.
var Kinds = []Kind{KindSale, KindFBA, KindUniware, KindMapping}

// ParseKind accepts the kind name in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// Column names read by the normalizer beyond the required schema.
const (
	ColFulfillmentChannel = "Fulfillment Channel"
)

// Schema maps each source to its required headers.
type Schema map[Kind][]string

// SchemaFromConfig builds the schema, adding the channel column to the sales
// requirements when keys include the channel.
func SchemaFromConfig(cfg config.SchemaConfig, keyByChannel bool) Schema {
	sale := append([]string(nil), cfg.Sale...)
	if keyByChannel && !contains(sale, ColFulfillmentChannel) {
		sale = append(sale, ColFulfillmentChannel)
	}
	return Schema{
		KindSale:    sale,
		KindFBA:     append([]string(nil), cfg.FBA...),
		KindUniware: append([]string(nil), cfg.Uniware...),
		KindMapping: append([]string(nil), cfg.Mapping...),
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

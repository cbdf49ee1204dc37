// Package filing turns spreadsheet rows into normalized filings.
package filing

import (
	"fmt"
	"strings"

	"github.com/sells-group/poi-ingest/internal/model"
)

// addressPrefixes maps the label the spreadsheet puts in front of an address
// to the kind it denotes.
var addressPrefixes = []struct {
	prefix string
	kind   model.AddressKind
}{
	{"Correspondentieadres: ", model.AddressCorrespondence},
	{"Vestigingsadres: ", model.AddressEstablishment},
	{"Woonadres: ", model.AddressResidential},
}

// UnrecognizedAddressPrefixError is returned when an address value does not
// start with any known label.
type UnrecognizedAddressPrefixError struct {
	Value string
}

func (e *UnrecognizedAddressPrefixError) Error() string {
	return fmt.Sprintf("filing: unknown address type: %q", e.Value)
}

// ClassifyAddress strips the label from a raw address value and returns the
// typed address.
func ClassifyAddress(raw string) (model.Address, error) {
	value := strings.TrimSpace(raw)
	for _, p := range addressPrefixes {
		if rest, ok := strings.CutPrefix(value, p.prefix); ok {
			return model.Address{Kind: p.kind, Address: rest}, nil
		}
	}
	return model.Address{}, &UnrecognizedAddressPrefixError{Value: raw}
}

package filing

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/poi-ingest/internal/model"
)

// ErrInvalidRow marks a row without a registration number.
var ErrInvalidRow = eris.New("filing: invalid row")

// Transform normalizes a spreadsheet row. It returns an error matching
// ErrInvalidRow when kvk is blank, or an *UnrecognizedAddressPrefixError when
// an address column cannot be classified.
func Transform(row model.FilingRow) (*model.Filing, error) {
	kvk := strings.TrimSpace(row.KVK)
	if kvk == "" {
		return nil, eris.Wrap(ErrInvalidRow, "missing kvk")
	}

	// Whitespace-only cells count as blank in both column groups.
	addresses := make([]model.Address, 0, 6)
	for _, raw := range row.AddressColumns() {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		addr, err := ClassifyAddress(raw)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, addr)
	}

	activities := make([]string, 0, 2)
	for _, a := range row.SecondaryActivityColumns() {
		if strings.TrimSpace(a) != "" {
			activities = append(activities, a)
		}
	}

	return &model.Filing{
		ID:                  model.FilingID(kvk),
		Name:                row.Bedrijfsnaam,
		URL:                 row.Link,
		Date:                row.Datum,
		KVK:                 kvk,
		Group:               row.Groep,
		PrimaryActivity:     row.Hoofdactiviteit,
		SecondaryActivities: activities,
		Addresses:           addresses,
	}, nil
}

// Package model defines the records that flow through the ingestion pipeline.
package model

// FilingRow is one line of the bankruptcy-filing spreadsheet export. Columns
// not tagged here are ignored; absent columns decode as empty strings.
type FilingRow struct {
	KVK              string `csv:"kvk" json:"kvk"`
	Adres0           string `csv:"adres0" json:"adres0,omitempty"`
	Adres1           string `csv:"adres1" json:"adres1,omitempty"`
	Adres2           string `csv:"adres2" json:"adres2,omitempty"`
	Adres3           string `csv:"adres3" json:"adres3,omitempty"`
	Adres4           string `csv:"adres4" json:"adres4,omitempty"`
	Adres5           string `csv:"adres5" json:"adres5,omitempty"`
	Bedrijfsnaam     string `csv:"Bedrijfsnaam" json:"Bedrijfsnaam,omitempty"`
	Link             string `csv:"Link" json:"Link,omitempty"`
	Datum            string `csv:"Datum" json:"Datum,omitempty"`
	Groep            string `csv:"groep" json:"groep,omitempty"`
	Hoofdactiviteit  string `csv:"hoofdactiviteit" json:"hoofdactiviteit,omitempty"`
	Nevenactiviteit1 string `csv:"nevenactiviteit 1" json:"nevenactiviteit 1,omitempty"`
	Nevenactiviteit2 string `csv:"nevenactiviteit 2" json:"nevenactiviteit 2,omitempty"`
}

// AddressColumns returns adres0 through adres5 in column order.
func (r FilingRow) AddressColumns() []string {
	return []string{r.Adres0, r.Adres1, r.Adres2, r.Adres3, r.Adres4, r.Adres5}
}

// SecondaryActivityColumns returns the two nevenactiviteit columns in order.
func (r FilingRow) SecondaryActivityColumns() []string {
	return []string{r.Nevenactiviteit1, r.Nevenactiviteit2}
}

// AddressKind identifies which kind of address a filing lists.
type AddressKind string

const (
	AddressCorrespondence AddressKind = "correspondentieadres"
	AddressEstablishment  AddressKind = "vestigingsadres"
	AddressResidential    AddressKind = "woonadres"
)

// Address is a classified address line from a filing.
type Address struct {
	Kind    AddressKind `json:"type"`
	Address string      `json:"address"`
}

// FilingSource is the source label stored on every POI and the prefix of its identifier.
const FilingSource = "faillissementsdossier"

// Filing is the normalized form of a FilingRow. It is the payload of the
// faillissementsdossier annotation.
type Filing struct {
	ID                  string    `json:"-"`
	Name                string    `json:"name"`
	URL                 string    `json:"url"`
	Date                string    `json:"date"`
	KVK                 string    `json:"kvkId"`
	Group               string    `json:"groep"`
	PrimaryActivity     string    `json:"hoofdactiviteit"`
	SecondaryActivities []string  `json:"nevenactiviteiten"`
	Addresses           []Address `json:"addresses"`
}

// FilingID derives the POI identifier for a registration number.
func FilingID(kvk string) string {
	return FilingSource + ":" + kvk
}

// EstablishmentAddresses returns the addresses of kind vestigingsadres.
func (f *Filing) EstablishmentAddresses() []Address {
	var out []Address
	for _, a := range f.Addresses {
		if a.Kind == AddressEstablishment {
			out = append(out, a)
		}
	}
	return out
}

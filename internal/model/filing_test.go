package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilingID(t *testing.T) {
	assert.Equal(t, "faillissementsdossier:12345678", FilingID("12345678"))
}

func TestFilingRow_AddressColumnsOrder(t *testing.T) {
	row := FilingRow{Adres0: "a", Adres2: "c", Adres5: "f"}
	assert.Equal(t, []string{"a", "", "c", "", "", "f"}, row.AddressColumns())
}

func TestFiling_EstablishmentAddresses(t *testing.T) {
	f := &Filing{Addresses: []Address{
		{Kind: AddressEstablishment, Address: "Keizersgracht 1"},
		{Kind: AddressResidential, Address: "Damrak 2"},
		{Kind: AddressEstablishment, Address: "Singel 3"},
		{Kind: AddressCorrespondence, Address: "Postbus 4"},
	}}

	got := f.EstablishmentAddresses()
	require.Len(t, got, 2)
	assert.Equal(t, "Keizersgracht 1", got[0].Address)
	assert.Equal(t, "Singel 3", got[1].Address)
}

func TestFiling_JSONKeys(t *testing.T) {
	f := Filing{
		ID:                  "faillissementsdossier:1",
		Name:                "Acme BV",
		KVK:                 "1",
		SecondaryActivities: []string{"Detailhandel"},
		Addresses:           []Address{{Kind: AddressEstablishment, Address: "Keizersgracht 1"}},
	}
	data, err := json.Marshal(f)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.NotContains(t, m, "ID")
	assert.Equal(t, "Acme BV", m["name"])
	assert.Equal(t, "1", m["kvkId"])
	assert.Equal(t, []any{"Detailhandel"}, m["nevenactiviteiten"])
	addr := m["addresses"].([]any)[0].(map[string]any)
	assert.Equal(t, "vestigingsadres", addr["type"])
}

func TestIngestSummary_Rejected(t *testing.T) {
	s := IngestSummary{Rows: 10, Created: 5, Invalid: 2, Unclassified: 1}
	assert.Equal(t, 3, s.Rejected())
}

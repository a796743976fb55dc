package builder

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ctp-segment-connector/pkg/commercetools"
)

const consentJSON = `{"categoryPreferences":{"Advertising":true,"Analytics":false,"Functional":true,"DataSharing":false}}`

var defaultOptions = Options{Locale: "en-US", ConsentCustomFieldName: "consent"}

func loadOrder(t *testing.T, name string) *commercetools.Order {
	t.Helper()
	var order commercetools.Order
	loadFixture(t, name, &order)
	return &order
}

func loadCustomer(t *testing.T, name string) *commercetools.Customer {
	t.Helper()
	var customer commercetools.Customer
	loadFixture(t, name, &customer)
	return &customer
}

func loadFixture(t *testing.T, name string, out any) {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func consentFields(t *testing.T, value string) *commercetools.CustomFields {
	t.Helper()
	return &commercetools.CustomFields{Fields: map[string]json.RawMessage{
		"consent": json.RawMessage(strconv.Quote(value)),
	}}
}

func expectedConsent() map[string]any {
	return map[string]any{
		"categoryPreferences": map[string]any{
			"Advertising": true,
			"Analytics":   false,
			"Functional":  true,
			"DataSharing": false,
		},
	}
}

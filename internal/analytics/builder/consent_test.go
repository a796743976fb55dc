package builder

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ctp-segment-connector/pkg/commercetools"
)

func strPtr(v string) *string { return &v }

func TestBuildConsentContext(t *testing.T) {
	ctx, err := BuildConsentContext(strPtr(consentJSON))
	require.NoError(t, err)
	require.NotNil(t, ctx)
	assert.Equal(t, expectedConsent(), ctx.Consent)

	payload, err := json.Marshal(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"consent":`+consentJSON+`}`, string(payload))
}

func TestBuildConsentContextAbsent(t *testing.T) {
	for _, raw := range []*string{nil, strPtr(""), strPtr("   ")} {
		ctx, err := BuildConsentContext(raw)
		require.NoError(t, err)
		assert.Nil(t, ctx)
	}
}

func TestBuildConsentContextPreservesNumbers(t *testing.T) {
	ctx, err := BuildConsentContext(strPtr(`{"version":12345678901234567890}`))
	require.NoError(t, err)

	payload, err := json.Marshal(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"consent":{"version":12345678901234567890}}`, string(payload))
}

func TestBuildConsentContextRejectsMalformed(t *testing.T) {
	for _, raw := range []string{`{"a":`, `not json`, `{"a":1} trailing`} {
		_, err := BuildConsentContext(strPtr(raw))
		var parseErr *ConsentParseError
		assert.ErrorAs(t, err, &parseErr, raw)
	}
}

func TestConsentFromCustom(t *testing.T) {
	value, err := ConsentFromCustom(consentFields(t, consentJSON), "consent")
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, consentJSON, *value)

	value, err = ConsentFromCustom(consentFields(t, consentJSON), "otherField")
	require.NoError(t, err)
	assert.Nil(t, value)

	value, err = ConsentFromCustom(nil, "consent")
	require.NoError(t, err)
	assert.Nil(t, value)

	nonString := &commercetools.CustomFields{Fields: map[string]json.RawMessage{"consent": json.RawMessage(`{"a":1}`)}}
	_, err = ConsentFromCustom(nonString, "consent")
	var parseErr *ConsentParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "consent", parseErr.Field)
}

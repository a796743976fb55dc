package builder

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/angelmondragon/ctp-segment-connector/internal/analytics/types"
	"github.com/angelmondragon/ctp-segment-connector/pkg/commercetools"
)

var errTrailingData = errors.New("unexpected data after consent value")

// BuildConsentContext parses a raw consent JSON string into the event context.
// A nil or blank value yields a nil context so the event omits it.
func BuildConsentContext(raw *string) (*types.Context, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}

	dec := json.NewDecoder(strings.NewReader(*raw))
	dec.UseNumber()

	var parsed any
	if err := dec.Decode(&parsed); err != nil {
		return nil, &ConsentParseError{Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ConsentParseError{Err: errTrailingData}
	}
	return &types.Context{Consent: parsed}, nil
}

// ConsentFromCustom returns the string value of the consent custom field, or nil when unset.
func ConsentFromCustom(custom *commercetools.CustomFields, fieldName string) (*string, error) {
	if custom == nil || fieldName == "" {
		return nil, nil
	}
	raw, ok := custom.Fields[fieldName]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, &ConsentParseError{Field: fieldName, Err: err}
	}
	return &value, nil
}

func consentContext(entityID string, custom *commercetools.CustomFields, fieldName string) (*types.Context, error) {
	raw, err := ConsentFromCustom(custom, fieldName)
	if err == nil {
		var ctx *types.Context
		ctx, err = BuildConsentContext(raw)
		if err == nil {
			return ctx, nil
		}
	}

	var parseErr *ConsentParseError
	if errors.As(err, &parseErr) {
		parseErr.EntityID = entityID
		parseErr.Field = fieldName
	}
	return nil, err
}

package builder

import (
	"errors"
	"strconv"

	"github.com/angelmondragon/ctp-segment-connector/internal/analytics/types"
	"github.com/angelmondragon/ctp-segment-connector/pkg/commercetools"
	pkgerrors "github.com/angelmondragon/ctp-segment-connector/pkg/errors"
)

// BuildIdentifyEvent maps a registered customer to an identify call keyed by id and version.
func BuildIdentifyEvent(customer *commercetools.Customer, opts Options) (*types.IdentifyEvent, error) {
	if customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer is required")
	}

	consent, err := consentContext(customer.ID, customer.Custom, opts.ConsentCustomFieldName)
	if err != nil {
		return nil, err
	}

	timestamp := customer.LastModifiedAt
	return &types.IdentifyEvent{
		UserID:    customer.ID,
		MessageID: customer.ID + "-" + strconv.FormatInt(customer.Version, 10),
		Timestamp: &timestamp,
		Traits: types.CustomerTraits{
			Email:           customer.Email,
			FirstName:       cloneString(customer.FirstName),
			LastName:        cloneString(customer.LastName),
			Title:           cloneString(customer.Title),
			DateOfBirth:     cloneString(customer.DateOfBirth),
			CustomerNumber:  cloneString(customer.CustomerNumber),
			ExternalID:      cloneString(customer.ExternalID),
			IsEmailVerified: customer.IsEmailVerified,
			Locale:          cloneString(customer.Locale),
			CreatedAt:       customer.CreatedAt,
		},
		Context: consent,
	}, nil
}

// BuildAnonymousIdentifyEvent links an anonymous session to an email. There is no stable
// version for an anonymous actor, so no message id or timestamp is set.
func BuildAnonymousIdentifyEvent(anonymousID, email string, rawConsent *string) (*types.IdentifyEvent, error) {
	consent, err := BuildConsentContext(rawConsent)
	if err != nil {
		var parseErr *ConsentParseError
		if errors.As(err, &parseErr) {
			parseErr.EntityID = anonymousID
		}
		return nil, err
	}
	return &types.IdentifyEvent{
		AnonymousID: anonymousID,
		Traits:      types.AnonymousTraits{Email: email},
		Context:     consent,
	}, nil
}

package builder

import (
	"fmt"

	pkgerrors "github.com/angelmondragon/ctp-segment-connector/pkg/errors"
)

// MissingRequiredFieldError reports an order that lacks a pricing field the event cannot be derived without.
type MissingRequiredFieldError struct {
	OrderID string
	Field   string
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("order %s is missing %s", e.OrderID, e.Field)
}

// Unwrap exposes the coded error so callers can map it to a status and retry policy.
func (e *MissingRequiredFieldError) Unwrap() error {
	return pkgerrors.New(pkgerrors.CodeDataIntegrity, e.Error()).WithDetails(map[string]string{
		"order_id": e.OrderID,
		"field":    e.Field,
	})
}

// ConsentParseError reports a consent custom field whose value is not valid JSON.
type ConsentParseError struct {
	EntityID string
	Field    string
	Err      error
}

func (e *ConsentParseError) Error() string {
	if e.EntityID == "" {
		return fmt.Sprintf("consent field %q is not valid json: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("consent field %q on %s is not valid json: %v", e.Field, e.EntityID, e.Err)
}

func (e *ConsentParseError) Unwrap() []error {
	coded := pkgerrors.New(pkgerrors.CodeDataIntegrity, e.Error()).WithDetails(map[string]string{
		"entity_id": e.EntityID,
		"field":     e.Field,
	})
	return []error{e.Err, coded}
}

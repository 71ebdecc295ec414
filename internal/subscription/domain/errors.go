package domain

import "errors"

var (
	ErrMissingRequiredField  = errors.New("missing_required_field")
	ErrDuplicateSubscription = errors.New("duplicate_subscription")
	ErrMissingGatewayKey     = errors.New("missing_gateway_key")
	ErrUnknownField          = errors.New("unknown_field")
	ErrInvalidFieldValue     = errors.New("invalid_field_value")
	ErrGatewayUnsupported    = errors.New("gateway_unsupported")
	ErrSubscriptionNotFound  = errors.New("subscription_not_found")
	ErrSubscriptionBusy      = errors.New("subscription_busy")
)

package domain

import "errors"

var (
	// Common domain errors
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidAuthCode    = errors.New("callback auth code mismatch")
	ErrMissingParameter   = errors.New("missing callback parameter")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("payment rejected by gateway")
	ErrUnexpectedResponse = errors.New("unexpected gateway response")
)

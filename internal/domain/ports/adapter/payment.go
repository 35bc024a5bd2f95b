package adapter

import (
	"context"

	"paytrail-client/internal/domain/model"
)

// PaymentGateway is the hex port for payment providers.
type PaymentGateway interface {
	Name() string

	// CreatePayment submits the order and returns the token and the payment page URL.
	CreatePayment(ctx context.Context, order *model.Order) (model.PaymentResult, error)
	// VerifyCallback checks the auth code of a success/notify return.
	VerifyCallback(cb model.Callback) bool
	// VerifyCancel checks the auth code of a failure/cancel return, which carries no PAID or METHOD.
	VerifyCancel(orderNumber, timestamp, authCode string) bool
}

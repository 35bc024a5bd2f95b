// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"paytrail-client/internal/domain"
	"paytrail-client/internal/domain/model"
	"paytrail-client/internal/domain/ports/adapter"
	"paytrail-client/internal/infra/logging"
	"paytrail-client/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// Callback kinds, matching the return URLs of model.URLSet.
const (
	CallbackSuccess = "success"
	CallbackNotify  = "notify"
	CallbackPending = "pending"
	CallbackCancel  = "cancel"
)

type PaymentUseCase interface {
	// Initiate validates the order and creates the payment at the provider.
	Initiate(ctx context.Context, order *model.Order) (model.PaymentResult, error)
	// Confirm verifies a success/notify/pending return.
	Confirm(ctx context.Context, kind string, cb model.Callback) error
	// Cancel verifies a failure/cancel return.
	Cancel(ctx context.Context, orderNumber, timestamp, authCode string) error
}

type paymentUC struct {
	gateway  adapter.PaymentGateway
	validate *validator.Validate
	log      *zerolog.Logger
}

func NewPaymentUseCase(gateway adapter.PaymentGateway, logger *zerolog.Logger) *paymentUC {
	return &paymentUC{
		gateway:  gateway,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      logger,
	}
}

func (u *paymentUC) Initiate(ctx context.Context, order *model.Order) (model.PaymentResult, error) {
	if order == nil {
		return model.PaymentResult{}, fmt.Errorf("%w: nil order", domain.ErrInvalidArgument)
	}
	ctx = logging.WithOrderNumber(ctx, order.OrderNumber)
	l := logging.With(ctx, u.log)
	defer logging.TraceDuration(l, "PaymentUC.Initiate")()

	if err := u.validateOrder(order); err != nil {
		metrics.ObservePaymentCreate(u.gateway.Name(), "invalid", 0)
		l.Warn().Err(err).Msg("order rejected before submission")
		return model.PaymentResult{}, err
	}

	start := time.Now()
	res, err := u.gateway.CreatePayment(ctx, order)
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObservePaymentCreate(u.gateway.Name(), resultOf(err), elapsed)
		l.Error().Err(err).Dur("duration", elapsed).Msg("payment creation failed")
		return model.PaymentResult{}, err
	}

	metrics.ObservePaymentCreate(u.gateway.Name(), "ok", elapsed)
	total := order.Total()
	metrics.AddPaymentAmount(order.Currency, total.InexactFloat64())
	l.Info().
		Str("provider", u.gateway.Name()).
		Str("token", res.Token).
		Str("amount", total.StringFixed(2)).
		Str("currency", order.Currency).
		Dur("duration", elapsed).
		Msg("payment created")
	return res, nil
}

func (u *paymentUC) Confirm(ctx context.Context, kind string, cb model.Callback) error {
	l := logging.With(logging.WithOrderNumber(ctx, cb.OrderNumber), u.log)
	if cb.OrderNumber == "" || cb.Timestamp == "" || cb.AuthCode == "" {
		metrics.IncCallback(kind, "missing_params")
		return fmt.Errorf("%w: ORDER_NUMBER, TIMESTAMP and RETURN_AUTHCODE are required", domain.ErrMissingParameter)
	}
	if !u.gateway.VerifyCallback(cb) {
		metrics.IncCallback(kind, "mismatch")
		return domain.ErrInvalidAuthCode
	}
	metrics.IncCallback(kind, "ok")
	l.Info().
		Str("kind", kind).
		Str("paid", cb.Paid).
		Str("method", cb.Method).
		Msg("payment callback verified")
	return nil
}

func (u *paymentUC) Cancel(ctx context.Context, orderNumber, timestamp, authCode string) error {
	l := logging.With(logging.WithOrderNumber(ctx, orderNumber), u.log)
	if orderNumber == "" || timestamp == "" || authCode == "" {
		metrics.IncCallback(CallbackCancel, "missing_params")
		return fmt.Errorf("%w: ORDER_NUMBER, TIMESTAMP and RETURN_AUTHCODE are required", domain.ErrMissingParameter)
	}
	if !u.gateway.VerifyCancel(orderNumber, timestamp, authCode) {
		metrics.IncCallback(CallbackCancel, "mismatch")
		return domain.ErrInvalidAuthCode
	}
	metrics.IncCallback(CallbackCancel, "ok")
	l.Info().Msg("payment cancelled by buyer")
	return nil
}

var (
	hundred = decimal.NewFromInt(100)
)

// validateOrder runs the struct tags and the numeric bounds of each line.
func (u *paymentUC) validateOrder(o *model.Order) error {
	if err := u.validate.Struct(o); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			fields := make([]string, 0, len(ve))
			for _, fe := range ve {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			sort.Strings(fields)
			return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	for i, p := range o.Products {
		switch {
		case !p.Amount.IsPositive():
			return fmt.Errorf("%w: products[%d].amount must be positive", domain.ErrInvalidArgument, i)
		case p.Price.IsNegative():
			return fmt.Errorf("%w: products[%d].price must not be negative", domain.ErrInvalidArgument, i)
		case p.VAT.IsNegative() || p.VAT.GreaterThan(hundred):
			return fmt.Errorf("%w: products[%d].vat must be within 0..100", domain.ErrInvalidArgument, i)
		case p.Discount.IsNegative() || p.Discount.GreaterThan(hundred):
			return fmt.Errorf("%w: products[%d].discount must be within 0..100", domain.ErrInvalidArgument, i)
		}
	}
	return nil
}

func resultOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrGatewayRejected):
		return "api_error"
	case errors.Is(err, domain.ErrUnexpectedResponse):
		return "unexpected"
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return "transport"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid"
	default:
		return "error"
	}
}

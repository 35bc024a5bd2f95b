package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"paytrail-client/internal/domain"
	"paytrail-client/internal/domain/model"
	"paytrail-client/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is a simple in-memory gateway to use in tests and dev mode.
// It signs callbacks the same way the real gateway does.
type NoopPaymentGateway struct {
	mu     sync.Mutex
	seq    int64
	secret string
	orders map[string]string // token -> order number
	log    *zerolog.Logger
}

func NewNoopPaymentGateway(secret string, logger *zerolog.Logger) *NoopPaymentGateway {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &NoopPaymentGateway{
		secret: secret,
		orders: make(map[string]string),
		log:    logger,
	}
}

func (g *NoopPaymentGateway) Name() string { return "noop" }

func (g *NoopPaymentGateway) next() string {
	g.seq++
	return fmt.Sprintf("noop-%d", g.seq)
}

func (g *NoopPaymentGateway) CreatePayment(ctx context.Context, order *model.Order) (model.PaymentResult, error) {
	if order == nil {
		return model.PaymentResult{}, fmt.Errorf("%w: nil order", domain.ErrInvalidArgument)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	token := g.next()
	g.orders[token] = order.OrderNumber
	return model.PaymentResult{
		OrderNumber: order.OrderNumber,
		Token:       token,
		URL:         "https://example.test/pay/" + token,
	}, nil
}

// Sign returns the auth code the gateway would attach to a successful return.
func (g *NoopPaymentGateway) Sign(cb model.Callback) string {
	return AuthCode(g.secret, cb.OrderNumber, cb.Timestamp, cb.Paid, cb.Method)
}

func (g *NoopPaymentGateway) VerifyCallback(cb model.Callback) bool {
	return verifyAuthCode(g.log, true, cb.OrderNumber, cb.AuthCode, g.Sign(cb))
}

func (g *NoopPaymentGateway) VerifyCancel(orderNumber, timestamp, authCode string) bool {
	return verifyAuthCode(g.log, true, orderNumber, authCode, AuthCode(g.secret, orderNumber, timestamp))
}

// Created reports whether a payment was created for orderNumber.
func (g *NoopPaymentGateway) Created(orderNumber string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range g.orders {
		if n == orderNumber {
			return true
		}
	}
	return false
}

// File: internal/infra/adapters/payment/paytrail_gateway.go
package payment

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"paytrail-client/internal/domain"
	"paytrail-client/internal/domain/model"
	"paytrail-client/internal/domain/ports/adapter"
	"paytrail-client/internal/infra/logging"
)

var _ adapter.PaymentGateway = (*PaytrailGateway)(nil)

const (
	DefaultServiceURL = "https://payment.paytrail.com"
	createPath        = "/api-payment/create"
	apiVersion        = "1"
	maxResponseBytes  = 1 << 20
)

// PaytrailGateway implements adapter.PaymentGateway against the Paytrail REST
// payment API (version 1) and its MD5 return auth codes.
type PaytrailGateway struct {
	merchantID     string
	merchantSecret string
	serviceURL     string
	client         *http.Client
	limiter        *rate.Limiter
	debug          bool
	dev            bool
	log            *zerolog.Logger
}

type Option func(*PaytrailGateway)

// WithServiceURL points the gateway at another host (test server, proxy).
func WithServiceURL(u string) Option {
	return func(g *PaytrailGateway) { g.serviceURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default HTTP client. A nil client is ignored.
func WithHTTPClient(c *http.Client) Option {
	return func(g *PaytrailGateway) {
		if c != nil {
			g.client = c
		}
	}
}

// WithTimeout sets the timeout of the HTTP client without touching the caller's copy.
func WithTimeout(d time.Duration) Option {
	return func(g *PaytrailGateway) {
		if d > 0 && g.client != nil {
			c := *g.client
			c.Timeout = d
			g.client = &c
		}
	}
}

// WithRateLimit throttles outbound CreatePayment calls. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(g *PaytrailGateway) {
		if rps <= 0 {
			g.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithDebug logs every round trip to the gateway at debug level.
func WithDebug(on bool) Option {
	return func(g *PaytrailGateway) { g.debug = on }
}

// WithDev disables redaction of auth codes in logs.
func WithDev(on bool) Option {
	return func(g *PaytrailGateway) { g.dev = on }
}

// NewPaytrailGateway builds a gateway for one merchant account.
func NewPaytrailGateway(merchantID, merchantSecret string, logger *zerolog.Logger, opts ...Option) (*PaytrailGateway, error) {
	if merchantID == "" {
		return nil, errors.New("merchant id empty")
	}
	if merchantSecret == "" {
		return nil, errors.New("merchant secret empty")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	g := &PaytrailGateway{
		merchantID:     merchantID,
		merchantSecret: merchantSecret,
		serviceURL:     DefaultServiceURL,
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	if _, err := url.ParseRequestURI(g.serviceURL); err != nil {
		return nil, fmt.Errorf("invalid service url: %w", err)
	}
	if g.debug {
		c := *g.client
		next := c.Transport
		if next == nil {
			next = http.DefaultTransport
		}
		c.Transport = &debugTransport{next: next, log: g.log}
		g.client = &c
	}
	return g, nil
}

func (g *PaytrailGateway) Name() string { return "paytrail" }

// CreatePayment posts the order to /api-payment/create and returns the token and
// payment page URL from a 201 response.
func (g *PaytrailGateway) CreatePayment(ctx context.Context, order *model.Order) (model.PaymentResult, error) {
	if order == nil {
		return model.PaymentResult{}, fmt.Errorf("%w: nil order", domain.ErrInvalidArgument)
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return model.PaymentResult{}, fmt.Errorf("rate limit: %w", err)
		}
	}

	b, err := json.Marshal(toWire(order))
	if err != nil {
		return model.PaymentResult{}, fmt.Errorf("failed to marshal payment: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.serviceURL+createPath, bytes.NewReader(b))
	if err != nil {
		return model.PaymentResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Verkkomaksut-Api-Version", apiVersion)
	req.SetBasicAuth(g.merchantID, g.merchantSecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return model.PaymentResult{}, fmt.Errorf("%w: %w", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return model.PaymentResult{}, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		return model.PaymentResult{}, decodeError(resp, body)
	}

	var out createResponse
	if err := json.Unmarshal(body, &out); err != nil || out.Token == "" {
		return model.PaymentResult{}, &UnexpectedResponseError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return model.PaymentResult{OrderNumber: out.OrderNumber, Token: out.Token, URL: out.URL}, nil
}

// VerifyCallback reports whether cb.AuthCode equals
// upper(hex(md5(ORDER_NUMBER|TIMESTAMP|PAID|METHOD|secret))).
func (g *PaytrailGateway) VerifyCallback(cb model.Callback) bool {
	calc := AuthCode(g.merchantSecret, cb.OrderNumber, cb.Timestamp, cb.Paid, cb.Method)
	return verifyAuthCode(g.log, g.dev, cb.OrderNumber, cb.AuthCode, calc)
}

// VerifyCancel checks the auth code of a cancelled payment: md5(ORDER_NUMBER|TIMESTAMP|secret).
func (g *PaytrailGateway) VerifyCancel(orderNumber, timestamp, authCode string) bool {
	calc := AuthCode(g.merchantSecret, orderNumber, timestamp)
	return verifyAuthCode(g.log, g.dev, orderNumber, authCode, calc)
}

// verifyAuthCode compares in constant time and logs a warning on mismatch.
// The calculated code is redacted unless dev is set.
func verifyAuthCode(log *zerolog.Logger, dev bool, orderNumber, got, calc string) bool {
	if subtle.ConstantTimeCompare([]byte(got), []byte(calc)) == 1 {
		return true
	}
	log.Warn().
		Str("order_number", orderNumber).
		Str("auth_code", got).
		Str("calculated", logging.Redact(calc, dev)).
		Msg("returned auth_code differs from calculated")
	return false
}

// AuthCode joins parts and secret with "|" and returns the upper-case hex MD5.
func AuthCode(secret string, parts ...string) string {
	base := strings.Join(append(parts, secret), "|")
	sum := md5.Sum([]byte(base))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// debugTransport logs request line, status and latency of each round trip.
type debugTransport struct {
	next http.RoundTripper
	log  *zerolog.Logger
}

func (t *debugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	l := logging.With(req.Context(), t.log)
	l.Debug().Str("method", req.Method).Str("url", req.URL.String()).Msg("gateway request")
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		l.Debug().Err(err).Dur("duration", time.Since(start)).Msg("gateway request failed")
		return nil, err
	}
	l.Debug().
		Int("status", resp.StatusCode).
		Str("content_type", resp.Header.Get("Content-Type")).
		Dur("duration", time.Since(start)).
		Msg("gateway response")
	return resp, nil
}

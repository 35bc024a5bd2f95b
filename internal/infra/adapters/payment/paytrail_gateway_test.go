//go:build !integration

package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"paytrail-client/internal/domain"
	"paytrail-client/internal/domain/model"
)

const (
	testMerchantID     = "13466"
	testMerchantSecret = "6pKF4jkv97zmqBJ3ZL8gUw5DfT2NMQ"
)

func newTestLogger(w io.Writer) *zerolog.Logger {
	if w == nil {
		w = io.Discard
	}
	logger := zerolog.New(w)
	return &logger
}

func testOrder() *model.Order {
	o := model.NewOrder("1", model.Contact{
		FirstName:  "Firstname",
		LastName:   "Lastname",
		Email:      "example@example.com",
		Street:     "Some Street 12",
		PostalCode: "31337",
		PostalCity: "Elite",
		Country:    "IF",
		Mobile:     "0123456789",
		Company:    "AwesomeCompany Ltd.",
	}, model.URLSet{
		Success:      "http://localhost/payment/success",
		Failure:      "http://localhost/payment/failure",
		Notification: "http://localhost/payment/notify",
		Pending:      "http://localhost/payment/pending",
	})
	o.AddProduct("0001", "Test Product",
		decimal.RequireFromString("1.00"),
		decimal.RequireFromString("4.99"),
		decimal.RequireFromString("23.00"),
		decimal.RequireFromString("0.00"))
	return o
}

func newTestGateway(t *testing.T, h http.HandlerFunc, opts ...Option) *PaytrailGateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithServiceURL(srv.URL), WithHTTPClient(srv.Client())}, opts...)
	g, err := NewPaytrailGateway(testMerchantID, testMerchantSecret, newTestLogger(nil), opts...)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	return g
}

func TestNewPaytrailGateway(t *testing.T) {
	if _, err := NewPaytrailGateway("", "s", nil); err == nil {
		t.Error("expected error for empty merchant id")
	}
	if _, err := NewPaytrailGateway("id", "", nil); err == nil {
		t.Error("expected error for empty merchant secret")
	}
	if _, err := NewPaytrailGateway("id", "s", nil, WithServiceURL("not a url")); err == nil {
		t.Error("expected error for invalid service url")
	}
	if _, err := NewPaytrailGateway("id", "s", nil, WithHTTPClient(nil), WithTimeout(time.Second)); err != nil {
		t.Errorf("expected nil http client to be ignored, got %v", err)
	}
	custom := &http.Client{}
	g, err := NewPaytrailGateway("id", "s", nil, WithHTTPClient(custom), WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if custom.Timeout != 0 || g.client.Timeout != time.Second {
		t.Errorf("expected timeout on a copy of the client, got caller %v gateway %v", custom.Timeout, g.client.Timeout)
	}
	g, err = NewPaytrailGateway("id", "s", nil)
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if g.serviceURL != DefaultServiceURL {
		t.Errorf("expected default service url, got %s", g.serviceURL)
	}
	if g.Name() != "paytrail" {
		t.Errorf("unexpected name %s", g.Name())
	}
}

func TestPaytrailGateway_CreatePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("should send the order and return token and url", func(t *testing.T) {
		var got map[string]any
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/api-payment/create" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			user, pass, ok := r.BasicAuth()
			if !ok || user != testMerchantID || pass != testMerchantSecret {
				t.Errorf("unexpected basic auth %q %q", user, pass)
			}
			if v := r.Header.Get("X-Verkkomaksut-Api-Version"); v != "1" {
				t.Errorf("expected api version header 1, got %q", v)
			}
			if v := r.Header.Get("Content-Type"); v != "application/json" {
				t.Errorf("unexpected content type %q", v)
			}
			if v := r.Header.Get("Accept"); v != "application/json" {
				t.Errorf("unexpected accept %q", v)
			}
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Errorf("decode body: %v", err)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"orderNumber":"1","token":"tok-123","url":"https://payment.paytrail.com/payment/load/token/tok-123"}`))
		})

		res, err := g.CreatePayment(ctx, testOrder())
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if res.Token != "tok-123" {
			t.Errorf("expected token tok-123, got %s", res.Token)
		}
		if !strings.HasSuffix(res.URL, "/tok-123") {
			t.Errorf("unexpected url %s", res.URL)
		}

		if got["orderNumber"] != "1" || got["currency"] != "EUR" || got["locale"] != "fi_FI" {
			t.Errorf("unexpected top level fields: %v", got)
		}
		urls := got["urlSet"].(map[string]any)
		if urls["notification"] != "http://localhost/payment/notify" {
			t.Errorf("unexpected urlSet %v", urls)
		}
		details := got["orderDetails"].(map[string]any)
		if details["includeVat"] != float64(1) {
			t.Errorf("expected includeVat 1, got %v", details["includeVat"])
		}
		contact := details["contact"].(map[string]any)
		if contact["companyName"] != "AwesomeCompany Ltd." {
			t.Errorf("expected companyName from contact company, got %v", contact["companyName"])
		}
		addr := contact["address"].(map[string]any)
		if addr["postalOffice"] != "Elite" || addr["postalCode"] != "31337" {
			t.Errorf("unexpected address %v", addr)
		}
		products := details["products"].([]any)
		if len(products) != 1 {
			t.Fatalf("expected 1 product, got %d", len(products))
		}
		p := products[0].(map[string]any)
		if p["code"] != "0001" || p["price"] != "4.99" || p["amount"] != "1.00" || p["vat"] != "23.00" || p["type"] != float64(1) {
			t.Errorf("unexpected product %v", p)
		}
	})

	t.Run("should map json error document", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"errorCode":"invalid-order-number","errorMessage":"Missing or invalid order number"}`))
		})

		_, err := g.CreatePayment(ctx, testOrder())
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %T: %v", err, err)
		}
		if apiErr.Code != "invalid-order-number" || apiErr.StatusCode != http.StatusBadRequest {
			t.Errorf("unexpected error %+v", apiErr)
		}
		if err.Error() != "Paytrail::Exception Missing or invalid order number [invalid-order-number]" {
			t.Errorf("unexpected message %q", err.Error())
		}
	})

	t.Run("should map xml error document", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<error>
  <errorCode>invalid-credentials</errorCode>
  <errorMessage>Invalid credentials</errorMessage>
  <errorMessage>Check merchant id</errorMessage>
</error>`))
		})

		_, err := g.CreatePayment(ctx, testOrder())
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %T: %v", err, err)
		}
		if apiErr.Code != "invalid-credentials" {
			t.Errorf("unexpected code %q", apiErr.Code)
		}
		if apiErr.Message != "Invalid credentials,Check merchant id" {
			t.Errorf("unexpected message %q", apiErr.Message)
		}
	})

	t.Run("should report unknown content type as unexpected", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html>bad gateway</html>"))
		})

		_, err := g.CreatePayment(ctx, testOrder())
		var unexp *UnexpectedResponseError
		if !errors.As(err, &unexp) {
			t.Fatalf("expected *UnexpectedResponseError, got %T: %v", err, err)
		}
		if unexp.StatusCode != http.StatusBadGateway {
			t.Errorf("unexpected status %d", unexp.StatusCode)
		}
	})

	t.Run("should treat empty success body as unknown error", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{}`))
		})

		_, err := g.CreatePayment(ctx, testOrder())
		var unexp *UnexpectedResponseError
		if !errors.As(err, &unexp) {
			t.Fatalf("expected *UnexpectedResponseError, got %T: %v", err, err)
		}
		if !strings.HasPrefix(err.Error(), "unknown-error {}") {
			t.Errorf("unexpected message %q", err.Error())
		}
	})

	t.Run("should keep a numeric json error code", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"errorCode":401,"errorMessage":"Invalid credentials"}`))
		})

		_, err := g.CreatePayment(ctx, testOrder())
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %T: %v", err, err)
		}
		if err.Error() != "Paytrail::Exception Invalid credentials [401]" {
			t.Errorf("unexpected message %q", err.Error())
		}
	})

	t.Run("should accept text/xml error documents", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/xml; charset=utf-8")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`<error><errorCode>invalid-amount</errorCode><errorMessage>Bad amount</errorMessage></error>`))
		})

		_, err := g.CreatePayment(ctx, testOrder())
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %T: %v", err, err)
		}
		if apiErr.Code != "invalid-amount" || apiErr.Message != "Bad amount" {
			t.Errorf("unexpected error %+v", apiErr)
		}
	})

	unexpected := []struct {
		name        string
		status      int
		contentType string
		body        string
	}{
		{"json error without code or message", http.StatusBadRequest, "application/json", `{}`},
		{"json error with null fields", http.StatusBadRequest, "application/json", `{"errorCode":null,"errorMessage":null}`},
		{"invalid json error", http.StatusBadRequest, "application/json", `not json`},
		{"xml error without code or message", http.StatusBadRequest, "application/xml", `<error><detail>x</detail></error>`},
		{"malformed xml error", http.StatusBadRequest, "application/xml", `<error><errorCode>x</error>`},
		{"invalid json on created", http.StatusCreated, "application/json", `not json`},
	}
	for _, tc := range unexpected {
		t.Run("should report "+tc.name+" as unexpected", func(t *testing.T) {
			g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tc.contentType)
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := g.CreatePayment(ctx, testOrder())
			var unexp *UnexpectedResponseError
			if !errors.As(err, &unexp) {
				t.Fatalf("expected *UnexpectedResponseError, got %T: %v", err, err)
			}
			if !errors.Is(err, domain.ErrUnexpectedResponse) {
				t.Errorf("expected ErrUnexpectedResponse, got %v", err)
			}
			if unexp.StatusCode != tc.status || unexp.Body != tc.body {
				t.Errorf("unexpected error %+v", unexp)
			}
			if !strings.HasPrefix(err.Error(), "unknown-error "+tc.body) {
				t.Errorf("unexpected message %q", err.Error())
			}
		})
	}

	t.Run("should wrap transport errors", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		g, err := NewPaytrailGateway(testMerchantID, testMerchantSecret, newTestLogger(nil), WithServiceURL(url))
		if err != nil {
			t.Fatalf("new gateway: %v", err)
		}
		_, err = g.CreatePayment(ctx, testOrder())
		if !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
		}
	})

	t.Run("should reject nil order", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})
		if _, err := g.CreatePayment(ctx, nil); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("should stop on cancelled context while rate limited", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"token":"t","url":"u"}`))
		}, WithRateLimit(0.001, 1))

		if _, err := g.CreatePayment(ctx, testOrder()); err != nil {
			t.Fatalf("first call should pass the limiter: %v", err)
		}
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := g.CreatePayment(cctx, testOrder()); err == nil {
			t.Fatal("expected rate limit error on cancelled context")
		}
	})

	t.Run("debug transport logs round trips", func(t *testing.T) {
		var buf bytes.Buffer
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"token":"t","url":"u"}`))
		}))
		defer srv.Close()
		g, err := NewPaytrailGateway(testMerchantID, testMerchantSecret, newTestLogger(&buf),
			WithServiceURL(srv.URL), WithHTTPClient(srv.Client()), WithDebug(true))
		if err != nil {
			t.Fatalf("new gateway: %v", err)
		}
		if _, err := g.CreatePayment(ctx, testOrder()); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if !strings.Contains(buf.String(), "gateway response") {
			t.Errorf("expected debug log, got %q", buf.String())
		}
	})
}

func TestAuthCode(t *testing.T) {
	got := AuthCode(testMerchantSecret, "1", "1234567890", "4.99", "1")
	if got != "0FD1C056C1B2D9CACE1B370D6E768616" {
		t.Errorf("unexpected auth code %s", got)
	}
	got = AuthCode(testMerchantSecret, "1", "1234567890")
	if got != "3E0345021EBBDCCFCD44DAE5130F2DF0" {
		t.Errorf("unexpected cancel auth code %s", got)
	}
}

func TestPaytrailGateway_VerifyCallback(t *testing.T) {
	var buf bytes.Buffer
	g, err := NewPaytrailGateway(testMerchantID, testMerchantSecret, newTestLogger(&buf))
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	cb := model.Callback{
		OrderNumber: "1",
		Timestamp:   "1234567890",
		Paid:        "4.99",
		Method:      "1",
		AuthCode:    "0FD1C056C1B2D9CACE1B370D6E768616",
	}

	if !g.VerifyCallback(cb) {
		t.Fatal("expected valid callback")
	}
	if buf.Len() != 0 {
		t.Errorf("expected no log on success, got %q", buf.String())
	}

	lower := cb
	lower.AuthCode = strings.ToLower(cb.AuthCode)
	if g.VerifyCallback(lower) {
		t.Error("expected lower-case auth code to be rejected")
	}

	tampered := cb
	tampered.Paid = "0.01"
	if g.VerifyCallback(tampered) {
		t.Error("expected tampered amount to be rejected")
	}
	if !strings.Contains(buf.String(), "returned auth_code differs from calculated") {
		t.Errorf("expected warning log, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Errorf("expected warn level, got %q", buf.String())
	}

	if !g.VerifyCancel("1", "1234567890", "3E0345021EBBDCCFCD44DAE5130F2DF0") {
		t.Error("expected valid cancel auth code")
	}
	if g.VerifyCancel("2", "1234567890", "3E0345021EBBDCCFCD44DAE5130F2DF0") {
		t.Error("expected cancel auth code for another order to be rejected")
	}
}

func TestNoopPaymentGateway(t *testing.T) {
	var buf bytes.Buffer
	g := NewNoopPaymentGateway("secret", newTestLogger(&buf))
	res, err := g.CreatePayment(context.Background(), testOrder())
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if res.Token != "noop-1" || !g.Created("1") {
		t.Errorf("unexpected result %+v", res)
	}
	cb := model.Callback{OrderNumber: "1", Timestamp: "1", Paid: "4.99", Method: "1"}
	cb.AuthCode = g.Sign(cb)
	if !g.VerifyCallback(cb) {
		t.Error("expected signed callback to verify")
	}
	if buf.Len() != 0 {
		t.Errorf("expected no log on success, got %q", buf.String())
	}

	forged := cb
	forged.Paid = "0.01"
	if g.VerifyCallback(forged) {
		t.Error("expected forged callback to be rejected")
	}
	if !strings.Contains(buf.String(), "returned auth_code differs from calculated") || !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Errorf("expected warning log, got %q", buf.String())
	}

	buf.Reset()
	if !g.VerifyCancel("1", "1", AuthCode("secret", "1", "1")) {
		t.Error("expected cancel code to verify")
	}
	if g.VerifyCancel("1", "1", "DEADBEEF") {
		t.Error("expected forged cancel code to be rejected")
	}
	if !strings.Contains(buf.String(), "returned auth_code differs from calculated") {
		t.Errorf("expected warning log for cancel, got %q", buf.String())
	}
}

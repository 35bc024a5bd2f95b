// Command demo submits a sample order to the Paytrail test account and prints
// the payment page URL.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"paytrail-client/internal/config"
	"paytrail-client/internal/domain/model"
	"paytrail-client/internal/infra/adapters/payment"
	"paytrail-client/internal/infra/logging"
	"paytrail-client/internal/usecase"
)

// Public test credentials of the Paytrail sandbox merchant.
const (
	testMerchantID     = "13466"
	testMerchantSecret = "6pKF4jkv97zmqBJ3ZL8gUw5DfT2NMQ"
)

var demoContact = model.Contact{
	FirstName:  "Firstname",
	LastName:   "Lastname",
	Email:      "example@example.com",
	Street:     "Some Street 12",
	PostalCode: "31337",
	PostalCity: "Elite",
	Country:    "FI",
	Mobile:     "0123456789",
	Company:    "AwesomeCompany Ltd.",
}

var demoURLs = model.URLSet{
	Success:      "http://localhost/payment/success",
	Failure:      "http://localhost/payment/failure",
	Notification: "http://localhost/payment/notify",
	Pending:      "http://localhost/payment/pending",
}

func main() {
	orderNumber := flag.String("order", "", "order number (default: a fresh ULID)")
	cfgPath := flag.String("config", "", "optional config file; its merchant, service url, currency and locale replace the test account")
	serviceURL := flag.String("service-url", config.DefaultServiceURL, "gateway base URL")
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	flag.Parse()

	logger := logging.New(config.LogConfig{Level: "debug", Format: "console"}, true)

	merchantID, secret := testMerchantID, testMerchantSecret
	if v := os.Getenv("PAYTRAIL_MERCHANT_ID"); v != "" {
		merchantID = v
		secret = os.Getenv("PAYTRAIL_MERCHANT_SECRET")
	}
	svcURL := *serviceURL
	currency, locale := model.DefaultCurrency, model.DefaultLocale
	if *cfgPath != "" {
		cfg, err := config.LoadConfig(*cfgPath, true)
		if err != nil {
			logger.Fatal().Err(err).Msg("config")
		}
		pt := cfg.Payment.Paytrail
		merchantID, secret, svcURL = pt.MerchantID, pt.MerchantSecret, pt.ServiceURL
		currency, locale = pt.Currency, pt.Locale
	}

	gw, err := payment.NewPaytrailGateway(merchantID, secret, logger,
		payment.WithServiceURL(svcURL),
		payment.WithTimeout(*timeout),
		payment.WithDebug(true),
		payment.WithDev(true),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("gateway")
	}
	uc := usecase.NewPaymentUseCase(gw, logger)

	num := *orderNumber
	if num == "" {
		num = ulid.Make().String()
	}
	order := model.NewLocalizedOrder(num, currency, locale, demoContact, demoURLs)
	order.AddProduct("0001", "Test Product",
		decimal.RequireFromString("1.00"),
		decimal.RequireFromString("4.99"),
		decimal.RequireFromString("23.00"),
		decimal.RequireFromString("0.00"))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res, err := uc.Initiate(ctx, order)
	if err != nil {
		logger.Error().Err(err).Msg("payment failed")
		os.Exit(1)
	}
	logger.Info().Str("token", res.Token).Str("url", res.URL).Msg("payment created")
	fmt.Println(res.URL)
}

// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"paytrail-client/internal/config"
	"paytrail-client/internal/domain/ports/adapter"
	payAdapters "paytrail-client/internal/infra/adapters/payment"
	"paytrail-client/internal/infra/api"
	"paytrail-client/internal/infra/i18n"
	"paytrail-client/internal/infra/logging"
	"paytrail-client/internal/infra/metrics"
	"paytrail-client/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode: console logs, unredacted auth codes, in-memory gateway")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Gateway ----
	pt := cfg.Payment.Paytrail
	var gw adapter.PaymentGateway
	if cfg.Runtime.Dev {
		gw = payAdapters.NewNoopPaymentGateway(pt.MerchantSecret, logger)
		logger.Warn().Msg("[DEV MODE] using in-memory payment gateway")
	} else {
		gw, err = payAdapters.NewPaytrailGateway(pt.MerchantID, pt.MerchantSecret, logger,
			payAdapters.WithServiceURL(pt.ServiceURL),
			payAdapters.WithTimeout(pt.Timeout),
			payAdapters.WithRateLimit(pt.RateLimitRPS, pt.RateLimitBurst),
			payAdapters.WithDebug(pt.Debug),
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("paytrail gateway")
		}
	}
	paymentUC := usecase.NewPaymentUseCase(gw, logger)

	// ---- HTTP callback server ----
	u := cfg.Payment.URLs
	paths := api.PathsFromURLs(u.Success, u.Failure, u.Notification, u.Pending)
	srv := api.NewServer(paymentUC, paths, i18n.MustDefaultCatalog(), logger)
	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.HTTP.Port), Handler: srv.Router()}
	go func() {
		logger.Info().
			Str("addr", server.Addr).
			Str("provider", gw.Name()).
			Str("merchant_id", pt.MerchantID).
			Str("service_url", pt.ServiceURL).
			Msg("http callback listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}

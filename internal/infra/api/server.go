package api

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"paytrail-client/internal/domain"
	"paytrail-client/internal/domain/model"
	"paytrail-client/internal/infra/i18n"
	"paytrail-client/internal/infra/logging"
	"paytrail-client/internal/usecase"
)

// Query parameters the gateway appends to the return and notify URLs.
const (
	paramOrderNumber = "ORDER_NUMBER"
	paramTimestamp   = "TIMESTAMP"
	paramPaid        = "PAID"
	paramMethod      = "METHOD"
	paramAuthCode    = "RETURN_AUTHCODE"
)

// Paths are the local routes behind the URLs sent in model.URLSet.
type Paths struct {
	Success      string
	Failure      string
	Notification string
	Pending      string
}

// DefaultPaths mirrors the URL set used by the demo order.
func DefaultPaths() Paths {
	return Paths{
		Success:      "/payment/success",
		Failure:      "/payment/failure",
		Notification: "/payment/notify",
		Pending:      "/payment/pending",
	}
}

// PathsFromURLs takes the path portion of each configured URL, keeping the
// default where a URL is empty or has no path.
func PathsFromURLs(success, failure, notification, pending string) Paths {
	p := DefaultPaths()
	pick := func(dst *string, raw string) {
		if u, err := url.Parse(strings.TrimSpace(raw)); err == nil && u.Path != "" && u.Path != "/" {
			*dst = u.Path
		}
	}
	pick(&p.Success, success)
	pick(&p.Failure, failure)
	pick(&p.Notification, notification)
	pick(&p.Pending, pending)
	return p
}

// Server wires the payment return routes to PaymentUseCase.
type Server struct {
	payUC   usecase.PaymentUseCase
	paths   Paths
	msgs    *i18n.Catalog
	log     *zerolog.Logger
	timeout time.Duration
}

func NewServer(payUC usecase.PaymentUseCase, paths Paths, msgs *i18n.Catalog, logger *zerolog.Logger) *Server {
	return &Server{payUC: payUC, paths: paths, msgs: msgs, log: logger, timeout: 10 * time.Second}
}

// Router builds the chi router with middlewares, callbacks, health and metrics.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log), Timeout(s.timeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get(s.paths.Success, s.handleReturn(usecase.CallbackSuccess))
	r.Get(s.paths.Pending, s.handleReturn(usecase.CallbackPending))
	r.Get(s.paths.Notification, s.handleNotify)
	r.Get(s.paths.Failure, s.handleFailure)
	return r
}

func callbackFrom(q url.Values) model.Callback {
	return model.Callback{
		OrderNumber: q.Get(paramOrderNumber),
		Timestamp:   q.Get(paramTimestamp),
		Paid:        q.Get(paramPaid),
		Method:      q.Get(paramMethod),
		AuthCode:    q.Get(paramAuthCode),
	}
}

// handleReturn serves the browser redirect after a completed or pending payment.
func (s *Server) handleReturn(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tr := s.msgs.Match(r.Header.Get("Accept-Language"))
		cb := callbackFrom(r.URL.Query())
		if err := s.payUC.Confirm(r.Context(), kind, cb); err != nil {
			s.logReject(r, kind, err)
			s.renderHTML(w, tr, statusFor(err), false, tr.T("not_verified"))
			return
		}
		msg := tr.T("paid", cb.OrderNumber)
		if kind == usecase.CallbackPending {
			msg = tr.T("pending")
		}
		s.renderHTML(w, tr, http.StatusOK, true, msg)
	}
}

// handleNotify serves the server-to-server notification; the body is not read by the gateway.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	if err := s.payUC.Confirm(r.Context(), usecase.CallbackNotify, callbackFrom(r.URL.Query())); err != nil {
		s.logReject(r, usecase.CallbackNotify, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleFailure(w http.ResponseWriter, r *http.Request) {
	tr := s.msgs.Match(r.Header.Get("Accept-Language"))
	q := r.URL.Query()
	err := s.payUC.Cancel(r.Context(), q.Get(paramOrderNumber), q.Get(paramTimestamp), q.Get(paramAuthCode))
	if err != nil {
		s.logReject(r, usecase.CallbackCancel, err)
		s.renderHTML(w, tr, statusFor(err), false, tr.T("not_verified"))
		return
	}
	s.renderHTML(w, tr, http.StatusOK, false, tr.T("cancelled"))
}

func (s *Server) logReject(r *http.Request, kind string, err error) {
	l := logging.With(r.Context(), s.log)
	l.Warn().Err(err).Str("kind", kind).Str("order_number", r.URL.Query().Get(paramOrderNumber)).Msg("callback rejected")
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrMissingParameter), errors.Is(err, domain.ErrInvalidAuthCode):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var page = template.Must(template.New("cb").Parse(`<!doctype html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>{{.Title}}</title>
<style>
body{font-family:system-ui,Arial,sans-serif;margin:2rem;}
.card{max-width:560px;border:1px solid #ddd;border-radius:12px;padding:24px;}
.ok{color:#057a55} .fail{color:#b00020}
</style>
</head>
<body>
<div class="card">
  <h2 class="{{if .OK}}ok{{else}}fail{{end}}">{{.Title}}</h2>
  <p>{{.Msg}}</p>
</div>
</body>
</html>`))

func (s *Server) renderHTML(w http.ResponseWriter, tr *i18n.Translator, code int, ok bool, msg string) {
	title := tr.T("title_fail")
	if ok {
		title = tr.T("title_ok")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_ = page.Execute(w, struct {
		Lang  string
		Title string
		OK    bool
		Msg   string
	}{
		Lang:  tr.Lang(),
		Title: title,
		OK:    ok,
		Msg:   msg,
	})
}

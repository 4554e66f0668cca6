// Package httplog provides an http.RoundTripper that dumps traffic at a
// trace log level.
package httplog

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"
)

// LevelTrace is a custom log level for detailed HTTP traffic.
const LevelTrace = slog.Level(-8)

// Transport dumps requests and responses when the logger has LevelTrace
// enabled. Header values listed in Redact are masked in the dump.
type Transport struct {
	Base   http.RoundTripper
	Logger *slog.Logger
	// Service labels the log lines (e.g. "OpenRouter").
	Service string
	Redact  []string
}

// NewClient returns an *http.Client with the given per-request timeout using
// a trace Transport over the default transport.
func NewClient(service string, timeout time.Duration, logger *slog.Logger, redact ...string) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &Transport{
			Base:    http.DefaultTransport,
			Logger:  logger,
			Service: service,
			Redact:  redact,
		},
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base == nil {
		return http.DefaultTransport
	}
	return t.Base
}

func (t *Transport) logger() *slog.Logger {
	if t.Logger == nil {
		return slog.Default()
	}
	return t.Logger
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	log := t.logger()
	if !log.Enabled(req.Context(), LevelTrace) {
		return t.base().RoundTrip(req)
	}

	dumpReq := req.Clone(req.Context())
	for _, h := range t.Redact {
		if dumpReq.Header.Get(h) != "" {
			dumpReq.Header.Set(h, "REDACTED")
		}
	}
	// DumpRequestOut consumes the body, so dump a clone with a copied body.
	if req.GetBody != nil {
		if body, err := req.GetBody(); err == nil {
			dumpReq.Body = body
		}
	}
	reqDump, err := httputil.DumpRequestOut(dumpReq, req.GetBody != nil)
	if err != nil {
		log.Debug("Failed to dump request", "service", t.Service, "error", err)
	} else {
		log.Log(req.Context(), LevelTrace, t.Service+" REST Request", "url", req.URL.String(), "dump", string(reqDump))
	}

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return nil, err
	}

	isStream := strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream")
	respDump, err := httputil.DumpResponse(resp, !isStream)
	if err != nil {
		log.Debug("Failed to dump response", "service", t.Service, "error", err)
	} else {
		log.Log(req.Context(), LevelTrace, t.Service+" REST Response", "isStream", isStream, "dump", string(respDump))
	}
	return resp, nil
}

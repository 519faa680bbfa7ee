// Package transport builds the HTTP clients used to reach the Kytos daemon
// and the NApps server.
package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// Options configures a client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Retries   int
	UserAgent string
	Logger    *zap.Logger
}

// New returns a resty client whose transport retries connection failures,
// and server errors on idempotent requests, with exponential backoff.
// Responses are always handed back to resty, so callers see the final
// status code rather than a "giving up" error.
func New(opts Options) *resty.Client {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = max(opts.Retries, 0)
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.CheckRetry = retryPolicy
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = leveled{log.Sugar()}

	c := resty.NewWithClient(rc.StandardClient()).
		SetBaseURL(opts.BaseURL).
		SetLogger(log.Sugar()).
		SetHeader("Accept", "application/json")
	if opts.UserAgent != "" {
		c.SetHeader("User-Agent", opts.UserAgent)
	}
	if opts.Timeout > 0 {
		c.SetTimeout(opts.Timeout)
	}
	return c
}

func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil && resp != nil && !idempotent(resp.Request) {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func idempotent(req *http.Request) bool {
	if req == nil {
		return false
	}
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodDelete:
		return true
	}
	return false
}

// leveled adapts zap to retryablehttp.LeveledLogger.
type leveled struct {
	s *zap.SugaredLogger
}

func (l leveled) Error(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l leveled) Info(msg string, kv ...any)  { l.s.Debugw(msg, kv...) }
func (l leveled) Debug(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l leveled) Warn(msg string, kv ...any)  { l.s.Debugw(msg, kv...) }

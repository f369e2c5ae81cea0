package composables

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/iota-crm/pkg/constants"
)

var (
	ErrNoLogger = errors.New("logger not found")
)

type Params struct {
	IP            string
	UserAgent     string
	Authenticated bool
	Request       *http.Request
	Writer        http.ResponseWriter
}

// UseParams returns the request parameters from the context.
// If the parameters are not found, the second return value will be false.
func UseParams(ctx context.Context) (*Params, bool) {
	params, ok := ctx.Value(constants.ParamsKey).(*Params)
	return params, ok
}

// WithParams returns a new context with the request parameters.
func WithParams(ctx context.Context, params *Params) context.Context {
	return context.WithValue(ctx, constants.ParamsKey, params)
}

// UseLogger returns the request-scoped logger. It panics when the logging middleware did not run.
func UseLogger(ctx context.Context) *logrus.Entry {
	logger, err := TryUseLogger(ctx)
	if err != nil {
		panic(err)
	}
	return logger
}

func TryUseLogger(ctx context.Context) (*logrus.Entry, error) {
	logger, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry)
	if !ok || logger == nil {
		return nil, ErrNoLogger
	}
	return logger, nil
}

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseAuthenticated reports whether the auth middleware accepted the caller.
func UseAuthenticated(ctx context.Context) bool {
	params, ok := UseParams(ctx)
	if !ok {
		return false
	}
	return params.Authenticated
}

func UseIP(ctx context.Context) (string, bool) {
	params, ok := UseParams(ctx)
	if !ok {
		return "", false
	}
	return params.IP, true
}

func UseUserAgent(ctx context.Context) (string, bool) {
	params, ok := UseParams(ctx)
	if !ok {
		return "", false
	}
	return params.UserAgent, true
}

func UseRequestStart(ctx context.Context) (time.Time, bool) {
	start, ok := ctx.Value(constants.RequestStart).(time.Time)
	return start, ok
}

package composables

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jacksonlee411/orgtimeline/pkg/constants"
)

// WithLogger returns a new context carrying the logger entry.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseLogger returns the logger from the context.
// If the logger is not found, the second return value will be false.
func UseLogger(ctx context.Context) (*logrus.Entry, bool) {
	if ctx == nil {
		return nil, false
	}
	switch typed := ctx.Value(constants.LoggerKey).(type) {
	case *logrus.Entry:
		return typed, typed != nil
	case *logrus.Logger:
		if typed == nil {
			return nil, false
		}
		return logrus.NewEntry(typed), true
	default:
		return nil, false
	}
}

// WithRequestID returns a new context carrying the request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, constants.RequestIDKey, requestID)
}

// UseRequestID returns the request id from the context, generating a fresh
// uuid when none is set.
func UseRequestID(ctx context.Context) string {
	if ctx != nil {
		if v, ok := ctx.Value(constants.RequestIDKey).(string); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

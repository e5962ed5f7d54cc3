package testutil

import (
	"context"
	"net/http"
	"time"

	"veriflow/pkg/requestcontext"
)

// WithRequestID adds a correlation id to the request context.
// This simulates what the request middleware does for every inbound call.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithDevice adds device tags to the request context, as the device
// middleware would after classifying the User-Agent.
func WithDevice(req *http.Request, tags ...string) *http.Request {
	return req.WithContext(requestcontext.WithDeviceTags(req.Context(), tags))
}

// WithTime pins the request time seen by services.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}

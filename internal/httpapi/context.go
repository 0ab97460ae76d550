package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// errShuttingDown is the cancel cause of in-flight requests at shutdown.
var errShuttingDown = errors.New("server shutting down")

// serverBaseCtx is canceled when the process shuts down.
var serverBaseCtx = context.Background()

// SetBaseContext installs the shutdown context; nil resets it to Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	serverBaseCtx = ctx
}

// requestContext derives the context a handler passes to the service. It
// keeps the request's values, ends with the request or at shutdown, and
// carries the configured request timeout.
func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(r.Context())
	stop := context.AfterFunc(serverBaseCtx, func() { cancel(errShuttingDown) })
	release := func() {
		stop()
		cancel(context.Canceled)
	}
	if requestTimeout <= 0 {
		return ctx, release
	}
	tctx, tcancel := context.WithTimeout(ctx, time.Duration(requestTimeout)*time.Second)
	return tctx, func() { tcancel(); release() }
}

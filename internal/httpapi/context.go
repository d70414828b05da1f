package httpapi

import "context"

// serverBaseCtx is cancelled when the process starts shutting down.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level context chat streams are tied to.
// nil resets it to Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	serverBaseCtx = ctx
}

// joinContexts derives from req a context that is also cancelled when base is
// done, with base's cause. The returned cancel must be called when the
// handler ends.
func joinContexts(base, req context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(req)
	stop := context.AfterFunc(base, func() { cancel(context.Cause(base)) })
	return ctx, func() {
		stop()
		cancel(context.Canceled)
	}
}

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	storageless "github.com/MrEthical07/storageless"
)

// Session loads the request's session into the context and persists it into
// the response before the first byte of the status line is written. If the
// handler never writes, the cookie is persisted after it returns.
//
// Encoding failures are logged and the response continues without a session
// cookie.
func Session(p *storageless.Persistence) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p == nil {
				next.ServeHTTP(w, r)
				return
			}

			sess := p.InitializeSessionFromRequest(r)
			ctx := storageless.ContextWithSession(r.Context(), sess)

			sw := &sessionResponseWriter{
				ResponseWriter: w,
				persist: func() {
					if err := p.PersistSessionContext(ctx, sess, w.Header()); err != nil {
						p.Logger().WarnContext(ctx, "session cookie not written",
							slog.String("path", r.URL.Path),
							slog.Any("error", err),
						)
					}
				},
			}

			next.ServeHTTP(sw, r.WithContext(ctx))
			sw.persistOnce()
		})
	}
}

// FromContext returns the session stored by Session. It returns an error
// wrapping storageless.ErrMissingMiddleware when the middleware did not run.
func FromContext(ctx context.Context) (*storageless.Session, error) {
	s, ok := storageless.SessionFromContext(ctx)
	if !ok {
		return nil, storageless.NewMissingMiddlewareError("middleware.FromContext")
	}
	return s, nil
}

// MustFromContext is FromContext that panics when the middleware is missing.
func MustFromContext(ctx context.Context) *storageless.Session {
	s, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return s
}

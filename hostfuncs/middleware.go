package hostfuncs

import (
	"context"
	"encoding/json"
	"time"

	nmerrors "github.com/python-project-templates/nativemod/domain/errors"
	"go.uber.org/zap"
)

// Middleware wraps a Handler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
//
// Example usage:
//
//	timing := func(next Handler) Handler {
//	    return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
//	        start := time.Now()
//	        defer func() { observe(time.Since(start)) }()
//	        return next(ctx, args)
//	    }
//	}
type Middleware func(next Handler) Handler

// Chain applies mw to h so that mw[0] is the outermost layer.
func Chain(h Handler, mw ...Middleware) Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// PanicRecoveryMiddleware converts a panic in the wrapped handler into a
// panic-typed host error. Every Function installs it around the native
// handler, below any middleware.
func PanicRecoveryMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, args []json.RawMessage) (resp json.RawMessage, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp = nil
					err = NewPanicError(r)
				}
			}()
			return next(ctx, args)
		}
	}
}

// LoggingMiddleware logs every invocation. It is meant for host loaders; the
// wrapper itself never logs.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
			fields := []zap.Field{zap.Int("args", len(args))}
			if cc, ok := CallContextFrom(ctx); ok {
				fields = append(fields, zap.String("module", cc.Module()), zap.String("function", cc.Function()))
			}
			logger.Debug("invoking native function", fields...)

			start := time.Now()
			resp, err := next(ctx, args)
			fields = append(fields, zap.Duration("elapsed", time.Since(start)))
			if err != nil {
				detail := nmerrors.ToErrorDetail(err)
				logger.Warn("native function failed", append(fields,
					zap.String("error_type", detail.Type),
					zap.String("error", detail.Message))...)
				return resp, err
			}
			logger.Debug("native function completed", fields...)
			return resp, nil
		}
	}
}

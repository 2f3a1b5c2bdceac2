package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskflow/api/transport"
	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/pkg/httpcontext"
)

type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

// Authenticator resolves a bearer token to a principal and its session id.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Principal, string, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// principal on the request for the handlers.
func Authenticate(auth Authenticator, adapter *httpcontext.Adapter, logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	if adapter == nil {
		adapter = httpcontext.NewAdapter(0)
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			tokenString := extractToken(ctx)
			if tokenString == "" {
				reject(ctx, fasthttp.StatusUnauthorized, domain.ErrCodeUnauthorized, "no token provided, please login")
				return
			}

			stdCtx, cancel := adapter.Attach(ctx)
			principal, sessionID, err := auth.Authenticate(stdCtx, tokenString)
			cancel()
			if err != nil {
				if domain.IsDomainError(err, domain.ErrCodeUnauthorized) {
					logger.Debug("authentication rejected",
						zap.String("request_id", httpcontext.RequestID(ctx)),
						zap.Error(err),
					)
					reject(ctx, fasthttp.StatusUnauthorized, domain.ErrCodeUnauthorized, messageOf(err))
					return
				}
				logger.Error("authentication failed",
					zap.String("request_id", httpcontext.RequestID(ctx)),
					zap.Error(err),
				)
				reject(ctx, fasthttp.StatusInternalServerError, domain.ErrCodeInternal, "internal error")
				return
			}

			httpcontext.SetPrincipal(ctx, principal, sessionID)
			next(ctx)
		}
	}
}

// RequireRole admits only principals holding role. It must run after
// Authenticate.
func RequireRole(role domain.Role) Middleware {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			p, ok := httpcontext.PrincipalFrom(ctx)
			if !ok {
				reject(ctx, fasthttp.StatusUnauthorized, domain.ErrCodeUnauthorized, "authentication required")
				return
			}
			if p.Role != role {
				reject(ctx, fasthttp.StatusForbidden, domain.ErrCodeForbidden, "access denied, insufficient permissions")
				return
			}
			next(ctx)
		}
	}
}

// Chain applies middlewares so the first one runs outermost.
func Chain(h fasthttp.RequestHandler, mws ...Middleware) fasthttp.RequestHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := strings.TrimSpace(string(ctx.Request.Header.Peek("Authorization")))
	if header == "" {
		return ""
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

func messageOf(err error) string {
	var dErr *domain.Error
	if errors.As(err, &dErr) {
		return dErr.Message
	}
	return err.Error()
}

func reject(ctx *fasthttp.RequestCtx, status int, code domain.ErrorCode, message string) {
	body, _ := json.Marshal(transport.NewError(string(code), message, nil))
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}

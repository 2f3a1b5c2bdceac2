package httpcontext

import (
	"github.com/valyala/fasthttp"

	"github.com/fastygo/taskflow/domain"
)

const (
	principalUserValue = "httpcontext.principal"
	sessionUserValue   = "httpcontext.session"
)

// SetPrincipal stores the authenticated caller on the request.
func SetPrincipal(ctx *fasthttp.RequestCtx, p domain.Principal, sessionID string) {
	ctx.SetUserValue(principalUserValue, p)
	ctx.SetUserValue(sessionUserValue, sessionID)
}

// PrincipalFrom returns the caller stored by SetPrincipal.
func PrincipalFrom(ctx *fasthttp.RequestCtx) (domain.Principal, bool) {
	if ctx == nil {
		return domain.Principal{}, false
	}
	p, ok := ctx.UserValue(principalUserValue).(domain.Principal)
	return p, ok && p.ID != ""
}

func SessionID(ctx *fasthttp.RequestCtx) string {
	if ctx == nil {
		return ""
	}
	sid, _ := ctx.UserValue(sessionUserValue).(string)
	return sid
}

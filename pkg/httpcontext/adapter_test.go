package httpcontext

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"

	appLogger "github.com/fastygo/taskflow/pkg/logger"
)

func TestAttachPropagatesIncomingRequestID(t *testing.T) {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set(HeaderRequestID, "req-42")

	stdCtx, cancel := NewAdapter(time.Second).Attach(&ctx)
	defer cancel()

	assert.Equal(t, "req-42", appLogger.RequestIDFromContext(stdCtx))
	assert.Equal(t, "req-42", string(ctx.Response.Header.Peek(HeaderRequestID)))
	_, hasDeadline := stdCtx.Deadline()
	assert.True(t, hasDeadline)
}

func TestRequestIDIsStableWithinRequest(t *testing.T) {
	var ctx fasthttp.RequestCtx
	first := RequestID(&ctx)
	assert.NotEmpty(t, first)
	assert.Equal(t, first, RequestID(&ctx))

	stdCtx, cancel := NewAdapter(0).Attach(&ctx)
	defer cancel()
	assert.Equal(t, first, appLogger.RequestIDFromContext(stdCtx))
}

/*
Package tracing gives each HTTP request a trace id and logs timed spans.

It is a small in-process tracer: spans are created with StartSpan, finished
with Finish, and written to zap by one collector goroutine. Trace context
travels in the X-Trace-ID and X-Span-ID headers, so the sessionctl client and
the server log the same trace id for a call.

# Usage

	tracer := tracing.New("sessiond", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "capture")
	defer tracer.Finish(span)
*/
package tracing

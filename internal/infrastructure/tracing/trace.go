package tracing

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/shared/id"
	"go.uber.org/zap"
)

// Header names used to propagate trace context.
const (
	TraceHeader = "X-Trace-ID"
	SpanHeader  = "X-Span-ID"
)

// Span is a single timed operation in a trace.
type Span struct {
	TraceID  id.TraceID
	SpanID   id.SpanID
	ParentID id.SpanID
	Name     string
	Start    time.Time
	Duration time.Duration
	Status   int
	Err      error

	mu   sync.Mutex
	tags map[string]string
}

// SetTag attaches a key/value to the span.
func (s *Span) SetTag(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[key] = value
}

// Tags returns a copy of the span tags.
func (s *Span) Tags() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.tags))
	for k, v := range s.tags {
		out[k] = v
	}
	return out
}

// SetError records err and marks the span failed.
func (s *Span) SetError(err error) {
	s.Err = err
	if s.Status == 0 {
		s.Status = http.StatusInternalServerError
	}
}

// Tracer hands out spans and logs them once finished. Finished spans are
// drained by a single collector goroutine; call Close to stop it.
type Tracer struct {
	service string
	logger  *zap.Logger
	spans   chan *Span
	done    chan struct{}
	stopped chan struct{}

	closeOnce sync.Once
}

// New starts a tracer for service.
func New(service string, logger *zap.Logger) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracer{
		service: service,
		logger:  logger,
		spans:   make(chan *Span, 1024),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go t.collect()
	return t
}

// StartSpan begins a span, continuing the trace stored in ctx if any.
func (t *Tracer) StartSpan(ctx context.Context, name string) (*Span, context.Context) {
	traceID := TraceIDFrom(ctx)
	if traceID == "" {
		traceID = id.NewTraceID()
	}

	span := &Span{
		TraceID:  traceID,
		SpanID:   id.NewSpanID(),
		ParentID: SpanIDFrom(ctx),
		Name:     name,
		Start:    time.Now(),
		tags:     make(map[string]string),
	}

	ctx = context.WithValue(ctx, traceIDKey, traceID)
	ctx = context.WithValue(ctx, spanIDKey, span.SpanID)
	return span, ctx
}

// Finish stamps the duration and queues span for logging. Spans finished
// after Close, or while the queue is full, are dropped.
func (t *Tracer) Finish(span *Span) {
	span.Duration = time.Since(span.Start)
	select {
	case <-t.done:
		return
	default:
	}
	select {
	case t.spans <- span:
	default:
		t.logger.Warn("span buffer full, dropping span",
			zap.String("trace_id", span.TraceID.String()),
			zap.String("operation", span.Name),
		)
	}
}

// Close stops the collector and waits until queued spans are logged.
func (t *Tracer) Close() {
	t.closeOnce.Do(func() {
		close(t.done)
	})
	<-t.stopped
}

func (t *Tracer) collect() {
	defer close(t.stopped)
	for {
		select {
		case span := <-t.spans:
			t.log(span)
		case <-t.done:
			for {
				select {
				case span := <-t.spans:
					t.log(span)
				default:
					return
				}
			}
		}
	}
}

func (t *Tracer) log(span *Span) {
	fields := []zap.Field{
		zap.String("service", t.service),
		zap.String("trace_id", span.TraceID.String()),
		zap.String("span_id", span.SpanID.String()),
		zap.String("operation", span.Name),
		zap.Duration("duration", span.Duration),
	}
	if span.ParentID != "" {
		fields = append(fields, zap.String("parent_id", span.ParentID.String()))
	}
	if span.Status != 0 {
		fields = append(fields, zap.Int("status", span.Status))
	}
	for k, v := range span.Tags() {
		fields = append(fields, zap.String(k, v))
	}

	if span.Err != nil {
		t.logger.Error("span completed with error", append(fields, zap.Error(span.Err))...)
		return
	}
	t.logger.Debug("span completed", fields...)
}

type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// TraceIDFrom returns the trace id carried by ctx.
func TraceIDFrom(ctx context.Context) id.TraceID {
	v, _ := ctx.Value(traceIDKey).(id.TraceID)
	return v
}

// SpanIDFrom returns the current span id carried by ctx.
func SpanIDFrom(ctx context.Context) id.SpanID {
	v, _ := ctx.Value(spanIDKey).(id.SpanID)
	return v
}

// Extract seeds ctx with trace context from incoming headers.
func Extract(ctx context.Context, h http.Header) context.Context {
	if v := h.Get(TraceHeader); v != "" {
		ctx = context.WithValue(ctx, traceIDKey, id.TraceID(v))
	}
	if v := h.Get(SpanHeader); v != "" {
		ctx = context.WithValue(ctx, spanIDKey, id.SpanID(v))
	}
	return ctx
}

// Inject copies trace context from ctx onto outgoing headers.
func Inject(ctx context.Context, h http.Header) {
	if v := TraceIDFrom(ctx); v != "" {
		h.Set(TraceHeader, v.String())
	}
	if v := SpanIDFrom(ctx); v != "" {
		h.Set(SpanHeader, v.String())
	}
}

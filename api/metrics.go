package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	boardEventName   = "board.request.metrics"
	boardEventDomain = "join.board"
	boardSpanName    = "join.board.request"
	tracerName       = "join-board/api"
	metricsKey       = "join.metrics"
)

type requestMetrics struct {
	logger *log.Logger
	span   trace.Span
	route  string
	method string
	start  time.Time

	session      string
	loadDuration time.Duration
	tasksVisible int
	errorStage   string
}

func newRequestMetrics(ctx context.Context, logger *log.Logger, method, route string) (*requestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, boardSpanName, trace.WithSpanKind(trace.SpanKindServer))
	return &requestMetrics{
		logger:       logger,
		span:         span,
		route:        route,
		method:       method,
		start:        time.Now(),
		tasksVisible: -1,
	}, spanCtx
}

func (m *requestMetrics) SetSession(id string) {
	if m == nil {
		return
	}
	m.session = id
}

func (m *requestMetrics) ObserveLoad(d time.Duration) {
	if m == nil || d <= 0 {
		return
	}
	m.loadDuration = d
}

func (m *requestMetrics) SetTasksVisible(n int) {
	if m == nil {
		return
	}
	if n < 0 {
		n = 0
	}
	m.tasksVisible = n
}

func (m *requestMetrics) SetErrorStage(stage string) {
	if m == nil || stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *requestMetrics) attributes(status int, err error) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("http.route", m.route),
		attribute.String("http.method", m.method),
		attribute.Int("http.status_code", status),
		attribute.Float64("join.board.total_ms", durationToMillis(time.Since(m.start))),
	}
	if m.session != "" {
		attrs = append(attrs, attribute.String("join.board.session", m.session))
	}
	if m.loadDuration > 0 {
		attrs = append(attrs, attribute.Float64("join.board.load_ms", durationToMillis(m.loadDuration)))
	}
	if m.tasksVisible >= 0 {
		attrs = append(attrs, attribute.Int("join.board.tasks_visible", m.tasksVisible))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("join.board.error_stage", m.errorStage))
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error.message", err.Error()))
	}
	return attrs
}

// Log ends the request span and emits one observability event to the log and
// to the span.
func (m *requestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	attrs := m.attributes(status, err)
	sevText, sevNumber := severityForStatus(status, err)

	eventAttrs := append([]attribute.KeyValue{
		attribute.String("event.name", boardEventName),
		attribute.String("event.domain", boardEventDomain),
		attribute.String("severity_text", sevText),
		attribute.Int("severity_number", sevNumber),
	}, attrs...)
	m.span.AddEvent("observability.event", trace.WithAttributes(eventAttrs...))
	m.span.SetAttributes(attrs...)
	if sevText == "ERROR" {
		desc := http.StatusText(status)
		if err != nil {
			desc = err.Error()
		}
		m.span.SetStatus(codes.Error, desc)
	} else {
		m.span.SetStatus(codes.Ok, "")
	}
	sc := m.span.SpanContext()
	m.span.End()

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"event.name":      boardEventName,
		"event.domain":    boardEventDomain,
		"severity_text":   sevText,
		"severity_number": sevNumber,
		"attributes":      attributesToFields(attrs),
	}
	if sc.HasTraceID() {
		fields["trace_id"] = sc.TraceID().String()
		fields["span_id"] = sc.SpanID().String()
	}
	entry := m.logger.WithFields(fields)
	switch sevText {
	case "ERROR":
		entry.Error("observability.event")
	case "WARN":
		entry.Warn("observability.event")
	default:
		entry.Info("observability.event")
	}
}

func severityForStatus(status int, err error) (string, int) {
	switch {
	case status >= http.StatusInternalServerError:
		return "ERROR", 17
	case err != nil && status == 0:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func attributesToFields(attrs []attribute.KeyValue) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}

// metricsMiddleware records one requestMetrics per API request.
func metricsMiddleware(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			m, ctx := newRequestMetrics(req.Context(), logger, req.Method, c.Path())
			c.SetRequest(req.WithContext(ctx))
			c.Set(metricsKey, m)

			err := next(c)
			status := c.Response().Status
			if err != nil && !c.Response().Committed {
				status = http.StatusInternalServerError
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
			}
			m.Log(status, err)
			return err
		}
	}
}

func metricsFrom(c echo.Context) *requestMetrics {
	m, _ := c.Get(metricsKey).(*requestMetrics)
	return m
}

package api

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type instrumentCtx struct {
	tracer    trace.Tracer
	requests  metric.Int64Counter
	logger    *slog.Logger
	idcounter *uint64
}

type reqCtxKeyType int

var reqCtxKey reqCtxKeyType

type reqCtx struct {
	id        string
	startTime time.Time
}

// instrumentResty opens a span per HTTP exchange, counts requests and logs
// them at debug level with a per-client message id.
func instrumentResty(client *resty.Client, tracer trace.Tracer, requests metric.Int64Counter, logger *slog.Logger) {
	var idcounter uint64
	i := instrumentCtx{
		tracer:    tracer,
		requests:  requests,
		logger:    logger,
		idcounter: &idcounter,
	}
	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

func (i instrumentCtx) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	ctx, _ := i.tracer.Start(req.Context(), "http "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL),
		),
	)

	id := strconv.FormatUint(atomic.AddUint64(i.idcounter, 1), 10)
	ctx = context.WithValue(ctx, reqCtxKey, reqCtx{id: id, startTime: time.Now()})
	i.logger.DebugContext(ctx, "start request",
		"method", req.Method,
		"url", req.URL,
		"message_id", id,
	)

	req.SetContext(ctx)
	return nil
}

func (i instrumentCtx) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.SetAttributes(attribute.Int("http.response.status_code", res.StatusCode()))
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, res.Status())
	}
	i.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("http.request.method", res.Request.Method),
		attribute.Int("http.response.status_code", res.StatusCode()),
	))

	rc, _ := ctx.Value(reqCtxKey).(reqCtx)
	i.logger.DebugContext(ctx, "request finished",
		"method", res.Request.Method,
		"url", res.Request.URL,
		"status", res.StatusCode(),
		"duration", time.Since(rc.startTime).String(),
		"message_id", rc.id,
	)
	return nil
}

func (i instrumentCtx) onError(req *resty.Request, err error) {
	ctx := req.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")
	span.SetName(fmt.Sprintf("http %s", req.Method))
	i.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("http.request.method", req.Method),
		attribute.Bool("error", true),
	))

	rc, _ := ctx.Value(reqCtxKey).(reqCtx)
	i.logger.DebugContext(ctx, "request failed",
		"method", req.Method,
		"url", req.URL,
		"err", err,
		"message_id", rc.id,
	)
}

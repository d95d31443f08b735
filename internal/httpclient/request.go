package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Request builds and executes one HTTP call.
type Request interface {
	Get(ctx context.Context, path string) (*Response, error)
	Post(ctx context.Context, path string) (*Response, error)

	// SetBody sets the payload. []byte and string are sent as is, anything
	// else is JSON encoded.
	SetBody(body any) Request
	SetHeader(key, value string) Request
	SetQueryParam(key, value string) Request

	// SetResult decodes a JSON response body into v.
	SetResult(v any) Request
}

// RequestOption configures a single request.
type RequestOption func(*requestBuilder)

// ResponseErrorHandler maps a response to an error, or nil when it is fine.
type ResponseErrorHandler func(statusCode int, body []byte) error

// WithResponseErrorHandler installs a response error handler.
func WithResponseErrorHandler(h ResponseErrorHandler) RequestOption {
	return func(r *requestBuilder) { r.errorHandler = h }
}

// WithLabel adds an attribute to the request metrics.
func WithLabel(key, value string) RequestOption {
	return func(r *requestBuilder) {
		r.labels = append(r.labels, attribute.String(key, value))
	}
}

// Response is an executed request with its body already read.
type Response struct {
	*http.Response
	body []byte
}

// Body returns the raw response body.
func (r *Response) Body() []byte { return r.body }

// String returns the response body as a string.
func (r *Response) String() string { return string(r.body) }

// IsError reports a status code of 400 or above.
func (r *Response) IsError() bool { return r.StatusCode >= 400 }

type requestBuilder struct {
	c            *InstrumentedClient
	headers      http.Header
	query        url.Values
	body         any
	result       any
	errorHandler ResponseErrorHandler
	labels       []attribute.KeyValue
}

func (r *requestBuilder) Get(ctx context.Context, path string) (*Response, error) {
	return r.execute(ctx, http.MethodGet, path)
}

func (r *requestBuilder) Post(ctx context.Context, path string) (*Response, error) {
	return r.execute(ctx, http.MethodPost, path)
}

func (r *requestBuilder) SetBody(body any) Request {
	r.body = body
	return r
}

func (r *requestBuilder) SetHeader(key, value string) Request {
	r.headers.Set(key, value)
	return r
}

func (r *requestBuilder) SetQueryParam(key, value string) Request {
	r.query.Set(key, value)
	return r
}

func (r *requestBuilder) SetResult(v any) Request {
	r.result = v
	return r
}

func (r *requestBuilder) resolve(path string) string {
	full := path
	if r.c.baseURL != "" && !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		full = strings.TrimSuffix(r.c.baseURL, "/")
		if path != "" {
			full += "/" + strings.TrimPrefix(path, "/")
		}
	}
	if len(r.query) == 0 {
		return full
	}
	sep := "?"
	if strings.Contains(full, "?") {
		sep = "&"
	}
	return full + sep + r.query.Encode()
}

func (r *requestBuilder) encodeBody(span trace.Span) (io.Reader, error) {
	var raw []byte
	switch b := r.body.(type) {
	case nil:
		return nil, nil
	case []byte:
		raw = b
	case string:
		raw = []byte(b)
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		raw = encoded
		if r.headers.Get("Content-Type") == "" {
			r.headers.Set("Content-Type", "application/json")
		}
	}
	if r.c.traceBodies {
		span.AddEvent("request.body", trace.WithAttributes(
			attribute.String("http.request_body", string(raw))))
	}
	return bytes.NewReader(raw), nil
}

func (r *requestBuilder) execute(ctx context.Context, method, path string) (*Response, error) {
	target := r.resolve(path)

	ctx, span := r.c.tracer.Start(ctx, "http.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("provider", r.c.providerName),
		),
	)
	defer span.End()

	start := time.Now()

	body, err := r.encodeBody(span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to encode body")
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create request")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = r.headers

	resp, err := r.c.client.Do(req)
	if err != nil {
		r.recordTransportError(span, err)
		r.record(ctx, start, false)
		return nil, err
	}

	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read body")
		r.record(ctx, start, false)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if r.c.traceBodies {
		span.AddEvent("response.body", trace.WithAttributes(
			attribute.String("http.response_body", string(raw))))
	}

	out := &Response{Response: resp, body: raw}

	if r.errorHandler != nil {
		if herr := r.errorHandler(resp.StatusCode, raw); herr != nil {
			span.SetStatus(codes.Error, herr.Error())
			r.record(ctx, start, false)
			return out, herr
		}
	}

	if r.result != nil && !out.IsError() && len(raw) > 0 {
		if err := json.Unmarshal(raw, r.result); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to decode response")
			r.record(ctx, start, false)
			return out, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	r.record(ctx, start, !out.IsError())
	return out, nil
}

func (r *requestBuilder) recordTransportError(span trace.Span, err error) {
	span.RecordError(err)

	var netErr net.Error
	if errors.Is(err, context.Canceled) {
		span.SetAttributes(attribute.Bool("context.cancelled", true))
	}
	if errors.As(err, &netErr) && netErr.Timeout() {
		span.SetAttributes(attribute.Bool("request.timeout", true))
	}
	span.SetStatus(codes.Error, err.Error())
}

func (r *requestBuilder) record(ctx context.Context, start time.Time, success bool) {
	attrs := append([]attribute.KeyValue{
		attribute.String("provider", r.c.providerName),
		attribute.Bool("success", success),
	}, r.labels...)

	set := metric.WithAttributes(attrs...)
	r.c.requestCounter.Add(ctx, 1, set)
	r.c.requestLatency.Record(ctx, time.Since(start).Seconds(), set)
}

// Package httpclient provides an HTTP client instrumented with OTEL tracing and metrics.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultDialKeepAlive   = 10 * time.Second
	defaultRequestTimeout  = 10 * time.Second
	defaultMaxConnsPerHost = 5
	defaultIdleConnTimeout = 2 * time.Minute

	instrumentationName  = "github.com/fd1az/pooldash/internal/httpclient"
	metricRequestCounter = "http_client_requests_total"
	metricRequestLatency = "http_client_request_duration_seconds"
)

// Client builds instrumented requests against one upstream.
type Client interface {
	NewRequest(opts ...RequestOption) Request
}

// InstrumentedClient wraps http.Client with an otelhttp transport, a request
// counter and a latency histogram.
type InstrumentedClient struct {
	client         *http.Client
	requestCounter metric.Int64Counter
	requestLatency metric.Float64Histogram
	providerName   string
	tracer         trace.Tracer
	baseURL        string
	headers        map[string]string
	traceBodies    bool
}

// Option configures an InstrumentedClient.
type Option func(*options)

type options struct {
	providerName  string
	baseURL       string
	timeout       time.Duration
	headers       map[string]string
	transport     http.RoundTripper
	meterProvider metric.MeterProvider
	tracer        trace.Tracer
	traceBodies   bool
}

// WithProviderName labels metrics and spans with the upstream name.
func WithProviderName(name string) Option {
	return func(o *options) { o.providerName = name }
}

// WithBaseURL resolves relative request paths against url.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithRequestTimeout bounds each request.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithHeaders sets headers sent on every request.
func WithHeaders(h map[string]string) Option {
	return func(o *options) { o.headers = h }
}

// WithTransport replaces the pooled default transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithTracer sets the tracer and, when traceBodies is set, records request and
// response bodies as span events.
func WithTracer(t trace.Tracer, traceBodies bool) Option {
	return func(o *options) {
		o.tracer = t
		o.traceBodies = traceBodies
	}
}

// New creates an InstrumentedClient.
func New(opts ...Option) (*InstrumentedClient, error) {
	o := options{
		providerName: "default",
		timeout:      defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	transport := o.transport
	if transport == nil {
		transport = &http.Transport{
			DialContext: (&net.Dialer{
				KeepAlive: defaultDialKeepAlive,
			}).DialContext,
			MaxConnsPerHost: defaultMaxConnsPerHost,
			IdleConnTimeout: defaultIdleConnTimeout,
		}
	}

	httpClient := &http.Client{
		Timeout: o.timeout,
		Transport: otelhttp.NewTransport(transport,
			otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
				return otelhttptrace.NewClientTrace(ctx)
			}),
		),
	}

	mp := o.meterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName,
		metric.WithInstrumentationAttributes(attribute.String("provider", o.providerName)))

	counter, err := meter.Int64Counter(metricRequestCounter,
		metric.WithDescription("Total number of outbound HTTP requests"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(metricRequestLatency,
		metric.WithDescription("Outbound HTTP request latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	tracer := o.tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}

	return &InstrumentedClient{
		client:         httpClient,
		requestCounter: counter,
		requestLatency: latency,
		providerName:   o.providerName,
		tracer:         tracer,
		baseURL:        o.baseURL,
		headers:        o.headers,
		traceBodies:    o.traceBodies,
	}, nil
}

// NewRequest starts a request carrying the client's default headers.
func (c *InstrumentedClient) NewRequest(opts ...RequestOption) Request {
	rb := &requestBuilder{
		c:       c,
		headers: make(http.Header, len(c.headers)),
		query:   make(map[string][]string),
	}
	for k, v := range c.headers {
		rb.headers.Set(k, v)
	}
	for _, opt := range opts {
		opt(rb)
	}
	return rb
}

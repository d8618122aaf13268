package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/services"
	"github.com/jacksonlee411/orgtimeline/pkg/composables"
)

var tracer = otel.Tracer("orgtimeline-api")

type Options struct {
	BaseURL         string
	Authorization   string
	Timeout         time.Duration
	RetryMax        int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	RequestIDHeader string
	Logger          *logrus.Logger
	// Transport overrides the round tripper of both clients.
	Transport http.RoundTripper
}

// Client talks to the org REST API. Queries retry on transient failures,
// mutations are sent exactly once.
type Client struct {
	baseURL         *url.URL
	authorization   string
	timeout         time.Duration
	requestIDHeader string
	reads           *retryablehttp.Client
	writes          *http.Client
	log             *logrus.Logger
}

var _ services.TimelineRepository = (*Client)(nil)

func NewClient(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("invalid org api base url: %q", raw)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = 100 * time.Millisecond
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = 2 * time.Second
	}

	reads := retryablehttp.NewClient()
	reads.RetryMax = opts.RetryMax
	reads.RetryWaitMin = opts.RetryWaitMin
	reads.RetryWaitMax = opts.RetryWaitMax
	reads.ErrorHandler = retryablehttp.PassthroughErrorHandler
	reads.Logger = nil
	if opts.Logger != nil {
		reads.Logger = leveledLogger{log: opts.Logger}
	}
	writes := &http.Client{}
	if opts.Transport != nil {
		reads.HTTPClient.Transport = opts.Transport
		writes.Transport = opts.Transport
	}

	return &Client{
		baseURL:         u,
		authorization:   strings.TrimSpace(opts.Authorization),
		timeout:         opts.Timeout,
		requestIDHeader: opts.RequestIDHeader,
		reads:           reads,
		writes:          writes,
		log:             opts.Logger,
	}, nil
}

type response struct {
	Status int
	Header http.Header
	Body   []byte
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, reqBody any, ifMatch string) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	ctx, span := tracer.Start(ctx, "orgapi."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", u.String()),
		),
	)
	defer span.End()

	resp, err := c.send(ctx, method, u.String(), reqBody, ifMatch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.Status))
	if resp.Status < 200 || resp.Status >= 300 {
		apiErr := decodeError(resp.Status, resp.Body)
		span.SetStatus(codes.Error, apiErr.Error())
		return nil, apiErr
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, method, target string, reqBody any, ifMatch string) (*response, error) {
	var payload []byte
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return nil, services.NewRemoteError(0, services.CodeInvalidBody, "could not encode request", errors.Wrap(err, "json marshal request"))
		}
		payload = b
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	if payload != nil {
		header.Set("Content-Type", "application/json")
	}
	if c.requestIDHeader != "" {
		header.Set(c.requestIDHeader, composables.UseRequestID(ctx))
	}
	if c.authorization != "" {
		header.Set("Authorization", c.authorization)
	}
	if ifMatch != "" {
		header.Set("If-Match", ifMatch)
	}
	propagation.TraceContext{}.Inject(ctx, propagation.HeaderCarrier(header))

	var (
		httpResp *http.Response
		err      error
	)
	if method == http.MethodGet {
		var req *retryablehttp.Request
		req, err = retryablehttp.NewRequestWithContext(ctx, method, target, nil)
		if err != nil {
			return nil, services.NewTransportError("could not build request", errors.Wrap(err, "http request"))
		}
		req.Header = header
		httpResp, err = c.reads.Do(req)
	} else {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		var req *http.Request
		req, err = http.NewRequestWithContext(ctx, method, target, body)
		if err != nil {
			return nil, services.NewTransportError("could not build request", errors.Wrap(err, "http request"))
		}
		req.Header = header
		httpResp, err = c.writes.Do(req)
	}
	if err != nil {
		return nil, services.NewTransportError("org service unreachable", errors.Wrap(err, "http do"))
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, services.NewTransportError("org service response interrupted", errors.Wrap(err, "http read"))
	}
	return &response{Status: httpResp.StatusCode, Header: httpResp.Header, Body: respBody}, nil
}

func (c *Client) warn(ctx context.Context, msg string, fields logrus.Fields) {
	if entry, ok := composables.UseLogger(ctx); ok {
		entry.WithFields(fields).Warn(msg)
		return
	}
	if c.log != nil {
		c.log.WithFields(fields).Warn(msg)
	}
}

func invalidResponse(what string, err error) error {
	return services.NewRemoteError(0, services.CodeInvalidResponse, "org service returned an invalid "+what, err)
}

type leveledLogger struct {
	log *logrus.Logger
}

func (l leveledLogger) fields(keysAndValues []interface{}) logrus.Fields {
	f := logrus.Fields{"component": "orgapi"}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if k, ok := keysAndValues[i].(string); ok {
			f[k] = keysAndValues[i+1]
		}
	}
	return f
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(l.fields(keysAndValues)).Error(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(l.fields(keysAndValues)).Info(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(l.fields(keysAndValues)).Debug(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(l.fields(keysAndValues)).Warn(msg)
}

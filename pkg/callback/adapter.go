package callback

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strings"
	"time"

	"callback/pkg/logger"
	"callback/pkg/meter"
	"callback/pkg/serrors"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// DefaultAPIVersion is the api_version configured when none is provided.
const DefaultAPIVersion = "service-f0.0.0"

const (
	defaultMaxBodyBytes       = 1 << 20
	defaultMaxMultipartMemory = 32 << 20
)

// internalErrorMessage is reported for faults that carry no client message.
const internalErrorMessage = "internal server error"

// ErrMissingAPIVersion is returned by New when Options.APIVersion is empty.
var ErrMissingAPIVersion = errors.New("apiVersion not specified")

// Logger is the debug capability the adapter reports through.
type Logger interface {
	Debug(tag string, value any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, any) {}

// Options configures an Adapter. The values are copied by New and never
// change afterwards.
type Options struct {
	// APIVersion is reported in every envelope. Required.
	APIVersion string
	// Languages are the envelope languages offered for Accept-Language
	// negotiation; the first one is the default. Empty means DefaultLang only.
	Languages []string
	// FilesInBody keeps multipart uploads inside Request.Body under
	// "uploadedFiles" instead of Request.UploadedFiles.
	FilesInBody bool
	// MaxBodyBytes bounds the decoded request body. Defaults to 1MiB.
	MaxBodyBytes int64
	// MaxMultipartMemory is the in-memory part of multipart parsing. Defaults to 32MiB.
	MaxMultipartMemory int64

	Logger         Logger
	Sampler        meter.Sampler
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

// Adapter runs controllers and writes their envelopes.
type Adapter struct {
	apiVersion string
	languages  []string
	matcher    language.Matcher
	normalizer normalizer
	logger     Logger
	sampler    meter.Sampler
	telemetry  *telemetry
}

// New validates opts and builds an Adapter. It fails fast with
// ErrMissingAPIVersion rather than on the first request.
func New(opts Options) (*Adapter, error) {
	if strings.TrimSpace(opts.APIVersion) == "" {
		return nil, ErrMissingAPIVersion
	}

	a := &Adapter{
		apiVersion: opts.APIVersion,
		languages:  []string{DefaultLang},
		normalizer: normalizer{
			filesInBody:        opts.FilesInBody,
			maxBodyBytes:       opts.MaxBodyBytes,
			maxMultipartMemory: opts.MaxMultipartMemory,
		},
		logger:  opts.Logger,
		sampler: opts.Sampler,
	}
	if a.normalizer.maxBodyBytes <= 0 {
		a.normalizer.maxBodyBytes = defaultMaxBodyBytes
	}
	if a.normalizer.maxMultipartMemory <= 0 {
		a.normalizer.maxMultipartMemory = defaultMaxMultipartMemory
	}
	if a.logger == nil {
		a.logger = nopLogger{}
	}
	if a.sampler == nil {
		a.sampler = meter.RuntimeSampler{}
	}

	if len(opts.Languages) > 0 {
		tags := make([]language.Tag, 0, len(opts.Languages))
		for _, l := range opts.Languages {
			tag, err := language.Parse(l)
			if err != nil {
				return nil, errors.Wrapf(err, "parse language %q", l)
			}
			tags = append(tags, tag)
		}
		a.languages = append([]string(nil), opts.Languages...)
		a.matcher = language.NewMatcher(tags)
	}

	t, err := newTelemetry(opts.MeterProvider, opts.TracerProvider)
	if err != nil {
		return nil, err
	}
	a.telemetry = t

	a.logger.Debug("apiVersion", a.apiVersion)

	return a, nil
}

// APIVersion returns the version reported in envelopes.
func (a *Adapter) APIVersion() string { return a.apiVersion }

// Handler returns an http.Handler running c once per request.
func (a *Adapter) Handler(c Controller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.serve(w, r, c)
	})
}

// HandlerFunc is Handler for plain functions.
func (a *Adapter) HandlerFunc(fn func(ctx context.Context, req *Request) (Result, error)) http.Handler {
	return a.Handler(ControllerFunc(fn))
}

func (a *Adapter) serve(w http.ResponseWriter, r *http.Request, c Controller) {
	// r may be a copy made by a middleware; the server only cleans up the
	// multipart form of its own request.
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	req, err := a.normalizer.normalize(w, r)
	a.logger.Debug("httpRequest", redacted(req))
	if err != nil {
		a.Reject(w, r, err)

		return
	}

	ctx, span := a.telemetry.start(r.Context(), r)
	defer span.End()

	started := time.Now()
	stopwatch := meter.Start()
	heap := meter.StartHeap(a.sampler)
	res, err := a.call(ctx, c, req)
	memoryUsage := heap.Delta()
	elapsedTime := stopwatch.Elapsed()
	took := time.Since(started)

	env := a.envelope(r)
	env.MemoryUsage = memoryUsage
	env.ElapseTime = &elapsedTime

	var (
		o    outcome
		code int
	)
	switch {
	case err != nil:
		a.logger.Debug("error", err)
		o, code = a.fault(env, err)
	case res.StatusCode != http.StatusOK:
		a.logger.Debug("httpResponse", res)
		o, code = outcomeBusinessError, res.StatusCode
		env.Error = res
	default:
		a.logger.Debug("httpResponse", res)
		o, code = outcomeSuccess, res.StatusCode
		env.Data = res.Body
	}

	a.telemetry.record(ctx, r, span, o, code, took, err)
	a.send(w, env)
}

// panicError carries a value recovered from a controller panic.
type panicError struct {
	value any
}

func (p *panicError) Error() string {
	return fmt.Sprintf("controller panic: %v", p.value)
}

// call runs the controller, turning a panic into an error.
func (a *Adapter) call(ctx context.Context, c Controller, req *Request) (res Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "recovered controller panic", zap.Any("panic", p), zap.Stack("stack"))
			err = &panicError{value: p}
		}
	}()

	return c.Handle(ctx, req)
}

// fault fills env.Error for err and returns the outcome and reported code.
//
// A *Failure with an HTTPResponse reports its own code and message, falling
// back to Failure.Body, and may override the measurements. Semantic errors
// from serrors report their kind's status. Everything else, including
// panics and failures without HTTPResponse, is reported as a 500.
func (a *Adapter) fault(env *Envelope, err error) (outcome, int) {
	var f *Failure
	if errors.As(err, &f) {
		if f.MemoryUsage != nil {
			env.MemoryUsage = f.MemoryUsage
		}
		if f.ElapsedTime != nil {
			env.ElapseTime = f.ElapsedTime
		}

		if f.HTTPResponse != nil {
			message := f.HTTPResponse.Body
			if isEmpty(message) {
				message = f.Body
			}
			env.Error = ErrorBody{Code: f.HTTPResponse.StatusCode, Message: message}

			return outcomeException, f.HTTPResponse.StatusCode
		}

		message := f.Body
		if isEmpty(message) {
			message = internalErrorMessage
		}
		env.Error = ErrorBody{Code: http.StatusInternalServerError, Message: message}

		return outcomeMalformed, http.StatusInternalServerError
	}

	if code, message, ok := serrors.HTTPStatus(err); ok {
		env.Error = ErrorBody{Code: code, Message: message}

		return outcomeException, code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		env.Error = ErrorBody{Code: http.StatusGatewayTimeout, Message: "timeout"}

		return outcomeException, http.StatusGatewayTimeout
	}

	env.Error = ErrorBody{Code: http.StatusInternalServerError, Message: internalErrorMessage}

	return outcomeMalformed, http.StatusInternalServerError
}

// isEmpty reports whether v is a missing message: nil, a nil pointer, an
// empty string, false, a numeric zero or NaN.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()

		return err == nil && (f == 0 || math.IsNaN(f))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0 || math.IsNaN(rv.Float())
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Pointer, reflect.Interface:
		return rv.IsZero()
	default:
		return false
	}
}

// sensitiveHeaders are removed from logged requests.
var sensitiveHeaders = []string{"Authorization", "Cookie", "Proxy-Authorization"} //nolint: gochecknoglobals

// redacted returns a copy of req without credential headers, for logging.
func redacted(req *Request) *Request {
	if req == nil {
		return nil
	}

	cp := *req
	cp.Headers = req.Headers.Clone()
	for _, h := range sensitiveHeaders {
		cp.Headers.Del(h)
	}

	return &cp
}

// Reject sends the envelope for a request refused before its controller ran,
// e.g. by authentication or rate limiting. err is translated the same way as
// a controller fault.
func (a *Adapter) Reject(w http.ResponseWriter, r *http.Request, err error) {
	a.logger.Debug("error", err)

	env := a.envelope(r)
	_, code := a.fault(env, err)
	a.telemetry.record(r.Context(), r, trace.SpanFromContext(r.Context()), outcomeRejected, code, 0, nil)
	a.send(w, env)
}

// RejectStatus is Reject with an explicit code and message.
func (a *Adapter) RejectStatus(w http.ResponseWriter, r *http.Request, code int, message string) {
	a.Reject(w, r, Fail(code, message))
}

// envelope returns an empty envelope for r with the negotiated language.
func (a *Adapter) envelope(r *http.Request) *Envelope {
	return &Envelope{APIVersion: a.apiVersion, Lang: a.lang(r)}
}

// lang picks the best configured language for the Accept-Language header.
func (a *Adapter) lang(r *http.Request) string {
	if a.matcher == nil {
		return a.languages[0]
	}

	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return a.languages[0]
	}
	_, index, confidence := a.matcher.Match(tags...)
	if confidence == language.No {
		return a.languages[0]
	}

	return a.languages[index]
}

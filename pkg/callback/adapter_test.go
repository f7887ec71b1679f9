package callback_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"callback/pkg/callback"
	mockcallback "callback/pkg/callback/mock"
	"callback/pkg/logger"
	"callback/pkg/serrors"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestMain(m *testing.M) {
	logger.Setup(logger.DevelopmentEnvironment)
	m.Run()
}

// fixedSampler returns the queued heap samples in order.
type fixedSampler struct {
	samples []uint64
}

func (s *fixedSampler) Sample() (uint64, bool) {
	if len(s.samples) == 0 {
		return 0, false
	}
	v := s.samples[0]
	s.samples = s.samples[1:]

	return v, true
}

func newAdapter(t *testing.T, opts callback.Options) *callback.Adapter {
	t.Helper()
	if opts.APIVersion == "" {
		opts.APIVersion = "service-t1.0.0"
	}
	a, err := callback.New(opts)
	require.NoError(t, err)

	return a
}

// serve runs h for req and returns the decoded envelope.
func serve(t *testing.T, h http.Handler, req *http.Request) map[string]any {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "transport status is always 200")
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var env map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Len(t, env, 6)

	return env
}

func TestNew_RequiresAPIVersion(t *testing.T) {
	for _, v := range []string{"", "   "} {
		a, err := callback.New(callback.Options{APIVersion: v})
		require.ErrorIs(t, err, callback.ErrMissingAPIVersion)
		require.Nil(t, a)
	}
}

func TestNew_InvalidLanguage(t *testing.T) {
	_, err := callback.New(callback.Options{APIVersion: callback.DefaultAPIVersion, Languages: []string{"not a tag!"}})
	require.Error(t, err)
}

func TestAdapter_Outcomes(t *testing.T) {
	cases := []struct {
		name     string
		result   callback.Result
		err      error
		wantErr  any
		wantData any
	}{
		{
			name:     "success",
			result:   callback.Result{StatusCode: http.StatusOK, Body: map[string]any{"id": 1}},
			wantErr:  map[string]any{},
			wantData: map[string]any{"id": float64(1)},
		},
		{
			name:     "success without body",
			result:   callback.OK(nil),
			wantErr:  map[string]any{},
			wantData: map[string]any{},
		},
		{
			name:   "business error",
			result: callback.Result{StatusCode: http.StatusNotFound, Body: map[string]any{"reason": "not found"}},
			wantErr: map[string]any{
				"statusCode": float64(404),
				"body":       map[string]any{"reason": "not found"},
			},
			wantData: map[string]any{},
		},
		{
			name:     "well formed failure",
			err:      callback.Fail(http.StatusInternalServerError, "boom"),
			wantErr:  map[string]any{"code": float64(500), "message": "boom"},
			wantData: map[string]any{},
		},
		{
			name: "failure falls back to body",
			err: &callback.Failure{
				HTTPResponse: &callback.Result{StatusCode: http.StatusConflict},
				Body:         "version mismatch",
			},
			wantErr:  map[string]any{"code": float64(409), "message": "version mismatch"},
			wantData: map[string]any{},
		},
		{
			name: "failure falls back to body on zero message",
			err: &callback.Failure{
				HTTPResponse: &callback.Result{StatusCode: http.StatusBadGateway, Body: 0},
				Body:         "upstream failed",
			},
			wantErr:  map[string]any{"code": float64(502), "message": "upstream failed"},
			wantData: map[string]any{},
		},
		{
			name: "failure falls back to body on false message",
			err: &callback.Failure{
				HTTPResponse: &callback.Result{StatusCode: http.StatusBadGateway, Body: false},
				Body:         "upstream failed",
			},
			wantErr:  map[string]any{"code": float64(502), "message": "upstream failed"},
			wantData: map[string]any{},
		},
		{
			name: "failure keeps empty object message",
			err: &callback.Failure{
				HTTPResponse: &callback.Result{StatusCode: http.StatusBadGateway, Body: map[string]any{}},
				Body:         "upstream failed",
			},
			wantErr:  map[string]any{"code": float64(502), "message": map[string]any{}},
			wantData: map[string]any{},
		},
		{
			name:     "failure without http response",
			err:      &callback.Failure{Err: errors.New("db down")},
			wantErr:  map[string]any{"code": float64(500), "message": "internal server error"},
			wantData: map[string]any{},
		},
		{
			name:     "plain error",
			err:      errors.New("nil pointer somewhere"),
			wantErr:  map[string]any{"code": float64(500), "message": "internal server error"},
			wantData: map[string]any{},
		},
		{
			name:     "semantic error",
			err:      serrors.With(serrors.ErrNotFound, "user 7 not found"),
			wantErr:  map[string]any{"code": float64(404), "message": "user 7 not found"},
			wantData: map[string]any{},
		},
		{
			name:     "deadline exceeded",
			err:      context.DeadlineExceeded,
			wantErr:  map[string]any{"code": float64(504), "message": "timeout"},
			wantData: map[string]any{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			c := mockcallback.NewMockController(ctrl)
			c.EXPECT().Handle(gomock.Any(), gomock.Any()).Return(tc.result, tc.err)

			a := newAdapter(t, callback.Options{})
			env := serve(t, a.Handler(c), httptest.NewRequest(http.MethodGet, "/", nil))

			require.Equal(t, "service-t1.0.0", env["api_version"])
			require.Equal(t, "en", env["lang"])
			require.Equal(t, tc.wantErr, env["error"])
			require.Equal(t, tc.wantData, env["data"])
			require.Regexp(t, `^\d+(\.\d+)?ms$`, env["elapse_time"])
		})
	}
}

func TestAdapter_PanicSendsSingleEnvelope(t *testing.T) {
	a := newAdapter(t, callback.Options{})
	h := a.HandlerFunc(func(context.Context, *callback.Request) (callback.Result, error) {
		var m map[string]int
		m["boom"]++ // nil map write

		return callback.OK(nil), nil
	})

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	require.Equal(t, http.StatusOK, rec.Code)

	dec := json.NewDecoder(strings.NewReader(rec.Body.String()))
	var env map[string]any
	require.NoError(t, dec.Decode(&env))
	require.False(t, dec.More(), "exactly one envelope is written")
	require.Equal(t, map[string]any{"code": float64(500), "message": "internal server error"}, env["error"])
	require.Equal(t, map[string]any{}, env["data"])
}

func TestAdapter_MemoryUsage(t *testing.T) {
	a := newAdapter(t, callback.Options{Sampler: &fixedSampler{samples: []uint64{1000, 1250}}})
	h := a.HandlerFunc(func(context.Context, *callback.Request) (callback.Result, error) {
		return callback.OK("done"), nil
	})

	env := serve(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, float64(250), env["memory_usage"])
	require.Equal(t, "done", env["data"])
}

func TestAdapter_MemoryUsageUnavailable(t *testing.T) {
	a := newAdapter(t, callback.Options{Sampler: &fixedSampler{}})
	h := a.HandlerFunc(func(context.Context, *callback.Request) (callback.Result, error) {
		return callback.OK(nil), nil
	})

	env := serve(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Contains(t, env, "memory_usage")
	require.Nil(t, env["memory_usage"])
}

func TestAdapter_FailureCarriesInstrumentation(t *testing.T) {
	memory := int64(-42)
	elapsed := "7.5ms"

	a := newAdapter(t, callback.Options{Sampler: &fixedSampler{samples: []uint64{1, 2}}})
	h := a.HandlerFunc(func(context.Context, *callback.Request) (callback.Result, error) {
		return callback.Result{}, &callback.Failure{
			HTTPResponse: &callback.Result{StatusCode: http.StatusBadGateway, Body: "upstream"},
			MemoryUsage:  &memory,
			ElapsedTime:  &elapsed,
		}
	})

	env := serve(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, float64(-42), env["memory_usage"])
	require.Equal(t, "7.5ms", env["elapse_time"])
	require.Equal(t, map[string]any{"code": float64(502), "message": "upstream"}, env["error"])
}

func TestAdapter_UnencodableBody(t *testing.T) {
	a := newAdapter(t, callback.Options{})
	h := a.HandlerFunc(func(context.Context, *callback.Request) (callback.Result, error) {
		return callback.OK(map[string]any{"ch": make(chan int)}), nil
	})

	env := serve(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, map[string]any{"code": float64(500), "message": "response encoding failed"}, env["error"])
	require.Equal(t, map[string]any{}, env["data"])
}

func TestAdapter_LanguageNegotiation(t *testing.T) {
	a := newAdapter(t, callback.Options{Languages: []string{"en", "fr", "de"}})
	h := a.HandlerFunc(func(context.Context, *callback.Request) (callback.Result, error) {
		return callback.OK(nil), nil
	})

	cases := map[string]string{
		"":                      "en",
		"fr-CH, fr;q=0.9":       "fr",
		"de;q=0.8, en;q=0.5":    "de",
		"ja":                    "en",
		"this is not a header,": "en",
	}
	for header, lang := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Accept-Language", header)
		}
		env := serve(t, h, req)
		require.Equal(t, lang, env["lang"], "Accept-Language %q", header)
	}
}

func TestAdapter_Reject(t *testing.T) {
	a := newAdapter(t, callback.Options{})

	rec := httptest.NewRecorder()
	a.RejectStatus(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusTooManyRequests, "rate limit exceeded")
	require.Equal(t, http.StatusOK, rec.Code)

	var env map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, map[string]any{"code": float64(429), "message": "rate limit exceeded"}, env["error"])
	require.Nil(t, env["elapse_time"])
	require.Nil(t, env["memory_usage"])

	rec = httptest.NewRecorder()
	a.Reject(rec, httptest.NewRequest(http.MethodGet, "/", nil), serrors.With(serrors.ErrUnauthorized, "invalid token"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, map[string]any{"code": float64(401), "message": "invalid token"}, env["error"])
}

func TestAdapter_APIVersionIsShared(t *testing.T) {
	a := newAdapter(t, callback.Options{APIVersion: "service-v9.9.9"})
	require.Equal(t, "service-v9.9.9", a.APIVersion())

	ok := a.HandlerFunc(func(context.Context, *callback.Request) (callback.Result, error) {
		return callback.OK(nil), nil
	})
	fail := a.HandlerFunc(func(context.Context, *callback.Request) (callback.Result, error) {
		return callback.Result{}, errors.New("boom")
	})

	for _, h := range []http.Handler{ok, fail} {
		env := serve(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, "service-v9.9.9", env["api_version"])
	}
}

func TestAdapter_DebugLogging(t *testing.T) {
	var tags []string
	a := newAdapter(t, callback.Options{Logger: recordingLogger(func(tag string, _ any) {
		tags = append(tags, tag)
	})})

	h := a.HandlerFunc(func(context.Context, *callback.Request) (callback.Result, error) {
		return callback.Result{}, errors.New("boom")
	})
	serve(t, h, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"apiVersion", "httpRequest", "error"}, tags)
}

func TestAdapter_DebugLoggingRedactsCredentials(t *testing.T) {
	var logged *callback.Request
	a := newAdapter(t, callback.Options{Logger: recordingLogger(func(tag string, value any) {
		if tag == "httpRequest" {
			logged, _ = value.(*callback.Request)
		}
	})})

	var seen http.Header
	h := a.HandlerFunc(func(_ context.Context, req *callback.Request) (callback.Result, error) {
		seen = req.Headers

		return callback.OK(nil), nil
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Cookie", "session=secret")
	req.Header.Set("Accept", "application/json")
	serve(t, h, req)

	require.NotNil(t, logged)
	require.Empty(t, logged.Headers.Get("Authorization"))
	require.Empty(t, logged.Headers.Get("Cookie"))
	require.Equal(t, "application/json", logged.Headers.Get("Accept"))

	// the controller still receives the credentials
	require.Equal(t, "Bearer secret", seen.Get("Authorization"))
	require.Equal(t, "session=secret", seen.Get("Cookie"))
}

type recordingLogger func(tag string, value any)

func (l recordingLogger) Debug(tag string, value any) { l(tag, value) }

func TestEnvelope_Encode(t *testing.T) {
	memory := int64(512)
	elapsed := "1.5ms"

	cases := []struct {
		name string
		env  callback.Envelope
		out  string
	}{
		{
			name: "defaults",
			env:  callback.Envelope{APIVersion: "v", Lang: "en"},
			out:  `{"api_version":"v","memory_usage":null,"elapse_time":null,"lang":"en","error":{},"data":{}}`,
		},
		{
			name: "filled",
			env: callback.Envelope{
				APIVersion:  "v",
				MemoryUsage: &memory,
				ElapseTime:  &elapsed,
				Lang:        "fr",
				Data:        []int{1, 2},
			},
			out: `{"api_version":"v","memory_usage":512,"elapse_time":"1.5ms","lang":"fr","error":{},"data":[1,2]}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := &jx.Encoder{}
			require.NoError(t, tc.env.Encode(e))
			require.JSONEq(t, tc.out, string(e.Bytes()))
			require.Equal(t, tc.out, string(e.Bytes()))
		})
	}
}

package callback

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// DefaultLang is the envelope language when none is negotiated.
const DefaultLang = "en"

// emptyObject is written for absent "error" and "data" members.
var emptyObject = []byte("{}") //nolint: gochecknoglobals

// Envelope is the single response document sent for every request.
type Envelope struct {
	APIVersion  string  `json:"api_version"`
	MemoryUsage *int64  `json:"memory_usage"`
	ElapseTime  *string `json:"elapse_time"`
	Lang        string  `json:"lang"`
	Error       any     `json:"error"`
	Data        any     `json:"data"`
}

// Encode writes the envelope with a fixed member order. Nil or null "error"
// and "data" members are written as {}.
func (env *Envelope) Encode(e *jx.Encoder) error {
	errRaw, err := objectOrEmpty(env.Error)
	if err != nil {
		return errors.Wrap(err, "encode error")
	}
	dataRaw, err := objectOrEmpty(env.Data)
	if err != nil {
		return errors.Wrap(err, "encode data")
	}

	e.ObjStart()
	e.FieldStart("api_version")
	e.Str(env.APIVersion)
	e.FieldStart("memory_usage")
	if env.MemoryUsage != nil {
		e.Int64(*env.MemoryUsage)
	} else {
		e.Null()
	}
	e.FieldStart("elapse_time")
	if env.ElapseTime != nil {
		e.Str(*env.ElapseTime)
	} else {
		e.Null()
	}
	e.FieldStart("lang")
	e.Str(env.Lang)
	e.FieldStart("error")
	e.Raw(errRaw)
	e.FieldStart("data")
	e.Raw(dataRaw)
	e.ObjEnd()

	return nil
}

func objectOrEmpty(v any) ([]byte, error) {
	if v == nil {
		return emptyObject, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err //nolint: wrapcheck
	}
	if bytes.Equal(raw, []byte("null")) {
		return emptyObject, nil
	}

	return raw, nil
}

// send writes env as the complete response: status 200, JSON content type.
// The document is encoded before anything reaches w; if encoding fails a
// 500-coded envelope without data is sent instead.
func (a *Adapter) send(w http.ResponseWriter, env *Envelope) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	if err := env.Encode(e); err != nil {
		a.logger.Debug("error", err)

		e.Reset()
		fallback := &Envelope{
			APIVersion:  env.APIVersion,
			MemoryUsage: env.MemoryUsage,
			ElapseTime:  env.ElapseTime,
			Lang:        env.Lang,
			Error:       ErrorBody{Code: http.StatusInternalServerError, Message: "response encoding failed"},
		}
		_ = fallback.Encode(e)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(e.Bytes())
}

package callback

import (
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"

	"callback/pkg/auth"
	"callback/pkg/domain"
	"callback/pkg/logger"
	"callback/pkg/middleware"
	"callback/pkg/serrors"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// filesField is the body member holding uploads when Options.FilesInBody is set.
const filesField = "uploadedFiles"

// Request is the framework-independent view of an incoming request handed to
// controllers. It is built once per request and must be treated as read-only.
type Request struct {
	AuthenticatedUser *domain.User      `json:"user,omitempty"`
	QueryParams       url.Values        `json:"query"`
	Body              any               `json:"body"`
	UploadedFiles     Files             `json:"files,omitempty"`
	RouteParams       map[string]string `json:"params"`
	Headers           http.Header       `json:"headers"`
	RequestID         string            `json:"id"`
	Logger            *zap.Logger       `json:"-"`
	ClientIP          string            `json:"ip"`
	ClientIPChain     []string          `json:"ips"`
	Hostname          string            `json:"hostname"`
}

// UploadedFile describes one multipart file part.
type UploadedFile struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`

	header *multipart.FileHeader
}

// Open returns a reader over the file content.
func (f UploadedFile) Open() (multipart.File, error) {
	if f.header == nil {
		return nil, errors.New("file content not available")
	}

	return f.header.Open() //nolint: wrapcheck
}

// Files maps multipart field names to their uploaded files.
type Files map[string][]UploadedFile

// normalizer projects *http.Request into Request.
type normalizer struct {
	filesInBody        bool
	maxBodyBytes       int64
	maxMultipartMemory int64
}

// normalize builds the Request for r. The only failure is an undecodable
// body, reported as serrors.ErrBadRequest.
func (n normalizer) normalize(w http.ResponseWriter, r *http.Request) (*Request, error) {
	ctx := r.Context()

	requestID := middleware.RequestID(ctx)
	if requestID == "" {
		requestID = r.Header.Get("X-Request-Id")
	}
	if requestID == "" {
		requestID = uuid.New().String()
	}

	req := &Request{
		AuthenticatedUser: auth.UserFromContext(ctx),
		QueryParams:       r.URL.Query(),
		RouteParams:       routeParams(r),
		Headers:           r.Header,
		RequestID:         requestID,
		Logger:            logger.Get(ctx),
		ClientIP:          middleware.ClientIP(r),
		ClientIPChain:     middleware.ClientIPs(r),
		Hostname:          hostname(r.Host),
	}

	body, files, err := n.body(w, r)
	if err != nil {
		return req, serrors.Wrap(serrors.ErrBadRequest, err, "malformed request body")
	}

	if n.filesInBody && len(files) > 0 {
		if fields, ok := body.(map[string]any); ok {
			fields[filesField] = files
		}
		files = nil
	}
	req.Body = body
	req.UploadedFiles = files

	return req, nil
}

// body decodes the request payload according to its media type: JSON
// documents, urlencoded and multipart forms become structured values, any
// other payload is passed as a string.
func (n normalizer) body(w http.ResponseWriter, r *http.Request) (any, Files, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil, nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, n.maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()

		var v any
		if err := dec.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil, nil
			}

			return nil, nil, errors.Wrap(err, "decode json")
		}
		if err := dec.Decode(new(json.RawMessage)); !errors.Is(err, io.EOF) {
			return nil, nil, errors.New("trailing data after json document")
		}

		return v, nil, nil
	case mediaType == "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, nil, errors.Wrap(err, "parse form")
		}

		return formFields(r.PostForm), nil, nil
	case mediaType == "multipart/form-data":
		if err := r.ParseMultipartForm(n.maxMultipartMemory); err != nil {
			return nil, nil, errors.Wrap(err, "parse multipart form")
		}

		return formFields(r.MultipartForm.Value), multipartFiles(r.MultipartForm.File), nil
	default:
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, nil, errors.Wrap(err, "read body")
		}
		if len(raw) == 0 {
			return nil, nil, nil
		}

		return string(raw), nil, nil
	}
}

// formFields flattens single-valued fields to strings and keeps repeated
// fields as string slices.
func formFields(values map[string][]string) map[string]any {
	fields := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) == 1 {
			fields[k] = v[0]

			continue
		}
		fields[k] = v
	}

	return fields
}

func multipartFiles(headers map[string][]*multipart.FileHeader) Files {
	if len(headers) == 0 {
		return nil
	}

	files := make(Files, len(headers))
	for field, fhs := range headers {
		for _, fh := range fhs {
			files[field] = append(files[field], UploadedFile{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Size:        fh.Size,
				header:      fh,
			})
		}
	}

	return files
}

// routeParams resolves the wildcards of the ServeMux pattern that matched r.
func routeParams(r *http.Request) map[string]string {
	params := map[string]string{}
	for _, name := range wildcards(r.Pattern) {
		params[name] = r.PathValue(name)
	}

	return params
}

// wildcards lists the wildcard names in a ServeMux pattern such as
// "GET /files/{bucket}/{path...}".
func wildcards(pattern string) []string {
	var names []string
	for {
		start := strings.IndexByte(pattern, '{')
		if start < 0 {
			return names
		}
		end := strings.IndexByte(pattern[start:], '}')
		if end < 0 {
			return names
		}

		name := strings.TrimSuffix(pattern[start+1:start+end], "...")
		if name != "" && name != "$" {
			names = append(names, name)
		}
		pattern = pattern[start+end+1:]
	}
}

func hostname(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}

	return host
}

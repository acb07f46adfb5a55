package pslang

import (
	"bytes"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

// Middleware projects text responses of next for audience before they leave
// the process. Non-text responses pass through untouched. A response that
// cannot be projected (too large, invalid UTF-8, unknown audience) is
// replaced by a 500 with no body.
func (p *Projector) Middleware(audience string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := &bufferedResponse{header: http.Header{}, status: http.StatusOK}
		next.ServeHTTP(buf, r)

		if !isText(buf.header.Get("Content-Type"), buf.body.Bytes()) {
			buf.copyTo(w, buf.body.Bytes())
			return
		}

		out, err := p.FilterFor(r.Context(), audience, buf.body.String())
		if err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		buf.header.Set("X-Pslang-Audience", out.Audience)
		buf.copyTo(w, []byte(out.Filtered))
	})
}

// bufferedResponse holds a response until it has been projected.
type bufferedResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (b *bufferedResponse) Header() http.Header         { return b.header }
func (b *bufferedResponse) Write(p []byte) (int, error) { return b.body.Write(p) }
func (b *bufferedResponse) WriteHeader(status int)      { b.status = status }

func (b *bufferedResponse) copyTo(w http.ResponseWriter, body []byte) {
	for k, v := range b.header {
		w.Header()[k] = v
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(b.status)
	_, _ = w.Write(body)
}

func isText(contentType string, body []byte) bool {
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt, "text/") || mt == "application/json" || mt == "application/xml"
}

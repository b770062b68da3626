package arcflow

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
)

// Request is arcflow's request representation. Unlike *http.Request
// its Body is already fully buffered, so handlers and middleware can
// read it more than once without needing to re-read the wire.
type Request struct {
	Method        string
	URL           *url.URL
	Proto         string
	Header        Header
	Body          []byte
	ContentLength int64
	Host          string
	RemoteAddr    string
	RequestURI    string

	ctx context.Context
}

// requestBodyBufferPool holds scratch buffers used while draining a
// request body into Request.Body.
var requestBodyBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// NewRequest wraps an *http.Request into a Request, buffering its
// body so handlers can read it more than once. Passing nil returns an
// empty Request ready for direct field assignment.
func NewRequest(r *http.Request) *Request {
	req := &Request{
		Header: NewHeader(),
		ctx:    context.Background(),
	}
	if r == nil {
		return req
	}

	req.Method = r.Method
	req.Proto = r.Proto
	req.Host = r.Host
	req.RemoteAddr = r.RemoteAddr
	req.RequestURI = r.RequestURI
	req.ContentLength = r.ContentLength
	if r.URL != nil {
		u := *r.URL
		req.URL = &u
	}

	for k, v := range r.Header {
		req.Header[k] = v
	}

	if r.Body != nil {
		buf := requestBodyBufferPool.Get().(*bytes.Buffer)
		buf.Reset()
		if _, err := io.Copy(buf, r.Body); err == nil {
			req.Body = append([]byte(nil), buf.Bytes()...)
			r.Body = io.NopCloser(bytes.NewReader(req.Body))
		}
		requestBodyBufferPool.Put(buf)
	}

	if rc := r.Context(); rc != nil {
		req.ctx = rc
	}

	return req
}

// Context returns the request's context, defaulting to
// context.Background() if none has been set.
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// WithContext returns a shallow copy of the request with its context
// replaced. It panics if ctx is nil, matching (*http.Request).WithContext.
func (r *Request) WithContext(ctx context.Context) *Request {
	if ctx == nil {
		panic("arcflow: nil context passed to Request.WithContext")
	}
	r2 := new(Request)
	*r2 = *r
	r2.ctx = ctx
	return r2
}

// SetContext replaces the request's context in place. It panics if
// ctx is nil.
func (r *Request) SetContext(ctx context.Context) {
	if ctx == nil {
		panic("arcflow: nil context passed to Request.SetContext")
	}
	r.ctx = ctx
}

// UserAgent returns the value of the User-Agent request header.
func (r *Request) UserAgent() string {
	return r.Header.Get("User-Agent")
}

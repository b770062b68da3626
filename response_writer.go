package arcflow

import (
	"net/http"
	"sync"
)

// ResponseWriter is the interface used by an HTTP handler to construct an HTTP response.
type ResponseWriter interface {
	// Header returns the header map that will be sent by WriteHeader.
	// The Header map also is the mechanism with which
	// Handlers can set HTTP trailers.
	Header() Header

	// Write writes the data to the connection as part of an HTTP reply.
	Write([]byte) (int, error)

	// WriteHeader sends an HTTP response header with the provided
	// status code.
	WriteHeader(statusCode int)

	// Flush writes the buffered response to the underlying writer.
	Flush()
}

// httpResponseWriterAdapter lets an *http.Request-driven caller (the
// standard library, httptest, a net/http-based deployment of the
// router) supply its own http.ResponseWriter while Ctx keeps working
// against the narrower ResponseWriter interface.
type httpResponseWriterAdapter struct {
	w http.ResponseWriter
}

var responseWriterAdapterPool = sync.Pool{
	New: func() interface{} {
		return &httpResponseWriterAdapter{}
	},
}

// NewResponseWriter adapts an http.ResponseWriter into a
// ResponseWriter, reusing a pooled adapter.
func NewResponseWriter(w http.ResponseWriter) ResponseWriter {
	a := responseWriterAdapterPool.Get().(*httpResponseWriterAdapter)
	a.w = w
	return a
}

// ReleaseResponseWriter returns a ResponseWriter obtained from
// NewResponseWriter to its pool. Writers not created by
// NewResponseWriter are ignored.
func ReleaseResponseWriter(w ResponseWriter) {
	if a, ok := w.(*httpResponseWriterAdapter); ok {
		a.w = nil
		responseWriterAdapterPool.Put(a)
	}
}

func (a *httpResponseWriterAdapter) Header() Header {
	return Header(a.w.Header())
}

func (a *httpResponseWriterAdapter) Write(b []byte) (int, error) {
	return a.w.Write(b)
}

func (a *httpResponseWriterAdapter) WriteHeader(statusCode int) {
	a.w.WriteHeader(statusCode)
}

func (a *httpResponseWriterAdapter) Flush() {
	if f, ok := a.w.(http.Flusher); ok {
		f.Flush()
	}
}

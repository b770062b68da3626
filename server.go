package arcflow

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arcflowhq/arcflow/internal/arena"
	"github.com/arcflowhq/arcflow/internal/gzipenc"
	"github.com/arcflowhq/arcflow/internal/httpparser"
	"github.com/arcflowhq/arcflow/log"
	"github.com/arcflowhq/arcflow/ws"

	"github.com/panjf2000/gnet/v2"
)

type noopLogger struct{}

func (l *noopLogger) Debugf(format string, args ...interface{}) {}
func (l *noopLogger) Infof(format string, args ...interface{})  {}
func (l *noopLogger) Warnf(format string, args ...interface{})  {}
func (l *noopLogger) Errorf(format string, args ...interface{}) {}
func (l *noopLogger) Fatalf(format string, args ...interface{}) {}

// Server represents an HTTP server.
type Server struct {
	httpServer            *httpServer
	router                *Router
	disableStartupMessage bool
	errorHandler          Handler // Handler called when an error occurs during request processing
}

type httpServer struct {
	gnet.BuiltinEventEngine

	addr         string
	multicore    bool
	router       *Router
	eng          gnet.Engine
	errorHandler Handler // Handler called when an error occurs during request processing

	readTimeout  time.Duration // Read timeout for requests
	writeTimeout time.Duration // Write timeout for responses
	idleTimeout  time.Duration // Idle timeout for connections

	arenaCfg  ArenaConfig
	parserCfg ParserConfig
}

// defaultErrorHandler is the default handler for errors.
// It returns a plain text response with the error message.
// If the error is an HttpError, it uses the status code from the HttpError.
// If the status code is already set to a 4xx or 5xx status code, it respects that.
func defaultErrorHandler(c *Ctx) {
	err := c.GetError()
	statusCode := c.StatusCode()

	// Check if the error is an HttpError
	var httpErr *HttpError
	if errors.As(err, &httpErr) {
		statusCode = httpErr.Code
	}

	c.Status(statusCode)
	c.String("%v", err)
}

// New creates a new server with the given configuration.
// This is the main entry point for creating an arcflow server instance.
//
// Parameters:
//   - config: The server configuration (use DefaultConfig() for sensible defaults)
//
// Returns:
//   - A new Server instance ready to be configured with routes and middleware
func New(config ...Config) *Server {
	r := NewRouter()

	// Use default config if none provided
	cfg := DefaultConfig()
	if len(config) > 0 {
		cfg = config[0]
	}

	hs := &httpServer{
		addr:         "",
		multicore:    true,
		router:       r,
		errorHandler: cfg.ErrorHandler,
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
		idleTimeout:  cfg.IdleTimeout,
		arenaCfg:     cfg.Arena,
		parserCfg:    cfg.Parser,
	}

	return &Server{
		httpServer:            hs,
		router:                r,
		disableStartupMessage: cfg.DisableStartupMessage,
		errorHandler:          cfg.ErrorHandler,
	}
}

func (hs *httpServer) OnBoot(eng gnet.Engine) gnet.Action {
	hs.eng = eng
	return gnet.None
}

// connState is the per-connection state stashed via gnet.Conn.SetContext.
// It is the sole owner of the connection's slab arena: every Request's
// body bytes are accumulated into arena-backed memory, and a Ctx that
// defers its response keeps that arena alive (via a keepalive token)
// until Finish runs, exactly as the ownership chain requires - the
// connection owns the arena, the arena owns the request/response/
// context state.
type connState struct {
	conn   gnet.Conn
	parser *httpparser.RequestParser
	arena  *arena.Arena

	bodyPtr arena.Ptr
	bodyLen int

	// deferTokens counts outstanding Ctx.Defer calls that haven't
	// Finish'd yet. The arena is only destroyed once this reaches zero
	// and the connection has closed.
	deferTokens    int32
	closing        int32
	arenaDestroyed int32

	upgraded  bool
	wsDecoder *ws.Decoder
}

func (cs *connState) resetBody() {
	cs.bodyPtr = arena.Ptr{}
	cs.bodyLen = 0
}

func (cs *connState) appendBody(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	need := cs.bodyLen + len(chunk)
	if need > cs.arena.Size(cs.bodyPtr) {
		newCap := need * 2
		if newCap < 256 {
			newCap = 256
		}
		p, err := cs.arena.Realloc(cs.bodyPtr, newCap)
		if err != nil {
			// Arena exhausted: drop the overflow rather than corrupt
			// an existing allocation. ContentLength mismatches surface
			// to the handler as a short body.
			return
		}
		cs.bodyPtr = p
	}
	copy(cs.arena.Bytes(cs.bodyPtr)[cs.bodyLen:need], chunk)
	cs.bodyLen = need
}

// AcquireDeferToken implements Conn.
func (cs *connState) AcquireDeferToken() bool {
	if atomic.LoadInt32(&cs.closing) != 0 {
		return false
	}
	atomic.AddInt32(&cs.deferTokens, 1)
	if atomic.LoadInt32(&cs.closing) != 0 {
		cs.ReleaseDeferToken()
		return false
	}
	return true
}

// ReleaseDeferToken implements Conn.
func (cs *connState) ReleaseDeferToken() {
	if atomic.AddInt32(&cs.deferTokens, -1) == 0 && atomic.LoadInt32(&cs.closing) != 0 {
		cs.destroyArenaOnce()
	}
}

// destroyArenaOnce tears the arena down exactly once. OnClose and the
// last ReleaseDeferToken to observe a closing connection can both
// decide the arena is ready to go at roughly the same time; the CAS
// guard is what actually makes "exactly once" true, independent of
// how that race resolves.
func (cs *connState) destroyArenaOnce() {
	if atomic.CompareAndSwapInt32(&cs.arenaDestroyed, 0, 1) {
		cs.arena.Destroy()
	}
}

// DeferredWrite implements Conn. It marshals the finished response
// onto the connection's own event-loop goroutine via gnet's
// goroutine-safe AsyncWrite, since neither the connection nor the
// arena it owns is safe to touch from the goroutine that called
// Finish. done runs on the loop goroutine once the write (or the
// closed-connection short-circuit) completes, which is the only safe
// place to release the pooled Request/Ctx this response belonged to.
func (cs *connState) DeferredWrite(statusCode int, header Header, body []byte, done func()) error {
	if atomic.LoadInt32(&cs.closing) != 0 {
		if done != nil {
			done()
		}
		return ErrDeferredOnClosedConnection
	}

	buf := buildResponseBytes(statusCode, header, body)
	err := cs.conn.AsyncWrite(buf, func(_ gnet.Conn, _ error) error {
		if done != nil {
			done()
		}
		return nil
	})
	if err != nil {
		if done != nil {
			done()
		}
		return ErrDeferredOnClosedConnection
	}
	return nil
}

func (hs *httpServer) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	parser := httpparser.NewRequestParser()
	if hs.parserCfg.MaxHeaderSize > 0 {
		parser.SetMaxHeadSize(hs.parserCfg.MaxHeaderSize)
	}

	var opts []arena.Option
	if hs.arenaCfg.BlockCount > 0 {
		opts = append(opts, arena.WithBlockCount(hs.arenaCfg.BlockCount))
	}
	if hs.arenaCfg.Locking {
		opts = append(opts, arena.WithLocking())
	}

	cs := &connState{
		conn:   c,
		parser: parser,
		arena:  arena.New(opts...),
	}
	cs.parser.Callbacks.OnBody = cs.appendBody
	c.SetContext(cs)
	return nil, gnet.None
}

// requestPool is a pool of Request objects for reuse, populated
// directly from a connState's parser rather than from an *http.Request.
var requestPool = sync.Pool{
	New: func() interface{} {
		return &Request{Header: NewHeader()}
	},
}

// getRequest gets a Request from the pool and fills it in from a
// completed parse on the given connection.
func getRequest(cs *connState, c gnet.Conn) *Request {
	req := requestPool.Get().(*Request)

	req.Method = string(cs.parser.Method)
	req.Proto = string(cs.parser.Version)
	rawURL := string(cs.parser.URL)
	req.RequestURI = rawURL
	if u, err := url.ParseRequestURI(rawURL); err == nil {
		req.URL = u
	} else {
		req.URL = &url.URL{Path: rawURL}
	}

	for _, h := range cs.parser.Headers {
		req.Header.Add(string(h.Name), string(h.Value))
	}
	req.Host = req.Header.Get("Host")
	req.RemoteAddr = c.RemoteAddr().String()

	if cs.bodyLen > 0 {
		req.Body = append(req.Body[:0], cs.arena.Bytes(cs.bodyPtr)[:cs.bodyLen]...)
	}
	req.ContentLength = int64(len(req.Body))
	req.ctx = nil

	return req
}

// releaseRequest returns a Request to the pool.
func releaseRequest(r *Request) {
	r.Method = ""
	r.URL = nil
	r.Proto = ""
	r.RequestURI = ""

	for k := range r.Header {
		delete(r.Header, k)
	}

	r.Body = r.Body[:0]
	r.ContentLength = 0
	r.Host = ""
	r.RemoteAddr = ""
	r.ctx = nil

	requestPool.Put(r)
}

// upgradeHandshake builds a ws.HandshakeRequest from a parsed request's
// headers and reports whether the request is even attempting an
// upgrade, so a normal HTTP request with no Upgrade/Connection headers
// at all never pays for the ws.Accept call.
func upgradeHandshake(header Header) (ws.HandshakeRequest, bool) {
	h := ws.HandshakeRequest{
		Upgrade:    header.Get(HeaderUpgrade),
		Connection: header.Get(HeaderConnection),
		Key:        header.Get(HeaderSecWebSocketKey),
		Version:    header.Get(HeaderSecWebSocketVersion),
	}
	if h.Upgrade == "" && h.Connection == "" {
		return h, false
	}
	return h, true
}

func (hs *httpServer) OnTraffic(c gnet.Conn) gnet.Action {
	cs := c.Context().(*connState)

	if cs.upgraded {
		return hs.feedWebSocket(cs, c)
	}

	data, _ := c.Peek(-1)
	remaining := data
	closeConn := false
	upgradedNow := false

loop:
	for len(remaining) > 0 {
		n, err := cs.parser.Execute(remaining)
		remaining = remaining[n:]

		if err != nil {
			writeResponse(c, StatusBadRequest, nil, []byte("Bad Request: "+err.Error()))
			closeConn = true
			break loop
		}

		if cs.parser.Phase() != httpparser.PhaseComplete {
			break loop
		}

		if limitErr := hs.checkParserLimits(cs); limitErr != nil {
			writeResponse(c, StatusRequestHeaderFieldsTooLarge, nil, []byte("Request Header Fields Too Large"))
			closeConn = true
			break loop
		}

		req := getRequest(cs, c)

		if hsReq, attempted := upgradeHandshake(req.Header); attempted {
			if accept, err := ws.Accept(hsReq); err == nil {
				writeUpgradeResponse(c, accept)
				cs.upgraded = true
				cs.wsDecoder = newWebSocketDecoder(hs, cs)
				releaseRequest(req)
				cs.parser.Reset()
				cs.resetBody()
				upgradedNow = true
				break loop
			}

			releaseRequest(req)
			writeResponse(c, StatusBadRequest, nil, []byte("Bad Request: "+ErrUpgradeRejected.Error()))
			cs.parser.Reset()
			cs.resetBody()
			if n == 0 {
				break loop
			}
			continue loop
		}

		deferred := processRequest(hs, req, c, cs)
		if !deferred {
			releaseRequest(req)
		}

		cs.parser.Reset()
		cs.resetBody()

		if n == 0 {
			break loop
		}
	}

	if consumed := len(data) - len(remaining); consumed > 0 {
		c.Discard(consumed)
	}

	if closeConn {
		return gnet.Close
	}

	if upgradedNow {
		return hs.feedWebSocket(cs, c)
	}

	return gnet.None
}

// checkParserLimits enforces the header-count and URL-length ceilings
// the wire parser itself doesn't know about; MaxHeaderSize is applied
// earlier, directly on the parser, via SetMaxHeadSize.
func (hs *httpServer) checkParserLimits(cs *connState) error {
	if hs.parserCfg.MaxHeaderCount > 0 && len(cs.parser.Headers) > hs.parserCfg.MaxHeaderCount {
		return ErrLimitExceeded
	}
	if hs.parserCfg.MaxURLSize > 0 && len(cs.parser.URL) > hs.parserCfg.MaxURLSize {
		return ErrLimitExceeded
	}
	return nil
}

// newWebSocketDecoder wires a ws.Decoder's outbound writes (pong
// replies, close-frame echoes) straight back onto the connection.
func newWebSocketDecoder(hs *httpServer, cs *connState) *ws.Decoder {
	d := ws.NewDecoder()
	d.Write = func(p []byte) error {
		_, err := cs.conn.Write(p)
		return err
	}

	if hs.router.WebSocket != nil {
		hs.router.WebSocket(cs.conn, d)
	}

	// Always close the connection once a close frame finishes the
	// exchange, even if the application registered its own OnClose.
	userOnClose := d.Callbacks.OnClose
	d.Callbacks.OnClose = func(code uint16, reason string) {
		if userOnClose != nil {
			userOnClose(code, reason)
		}
		cs.conn.Close()
	}
	return d
}

// feedWebSocket drives an upgraded connection's decoder with whatever
// bytes are currently buffered, mirroring the discard-what-you-consumed
// contract the HTTP parser uses.
func (hs *httpServer) feedWebSocket(cs *connState, c gnet.Conn) gnet.Action {
	data, _ := c.Peek(-1)
	if len(data) == 0 {
		return gnet.None
	}

	n, err := cs.wsDecoder.Feed(data)
	if n > 0 {
		c.Discard(n)
	}
	if err != nil {
		return gnet.Close
	}
	return gnet.None
}

// writeUpgradeResponse writes the 101 Switching Protocols response
// that completes a WebSocket handshake.
func writeUpgradeResponse(c gnet.Conn, acceptKey string) {
	header := make(Header)
	header.Set(HeaderUpgrade, "websocket")
	header.Set(HeaderConnection, "Upgrade")
	header.Set(HeaderSecWebSocketAccept, acceptKey)
	writeResponseNoLength(c, StatusSwitchingProtocols, header)
}

// OnClose is called when a connection is closed.
func (hs *httpServer) OnClose(c gnet.Conn, err error) (action gnet.Action) {
	if cs, ok := c.Context().(*connState); ok && cs != nil {
		cs.parser.Release()
		atomic.StoreInt32(&cs.closing, 1)
		if atomic.LoadInt32(&cs.deferTokens) == 0 {
			cs.destroyArenaOnce()
		}
	}
	return gnet.None
}

// dummyResponseWriter is used as a placeholder when creating a Ctx that will handle its own response writing
// but still needs to track headers correctly
type dummyResponseWriter struct {
	header http.Header
}

// dummyWriterPool is a pool of dummyResponseWriter objects for reuse
var dummyWriterPool = sync.Pool{
	New: func() interface{} {
		return &dummyResponseWriter{
			header: make(http.Header),
		}
	},
}

// getDummyWriter gets a dummyResponseWriter from the pool
func getDummyWriter() *dummyResponseWriter {
	return dummyWriterPool.Get().(*dummyResponseWriter)
}

// releaseDummyWriter returns a dummyResponseWriter to the pool
func releaseDummyWriter(d *dummyResponseWriter) {
	// Clear the header map
	for k := range d.header {
		delete(d.header, k)
	}
	dummyWriterPool.Put(d)
}

func (d *dummyResponseWriter) Header() http.Header {
	return d.header
}

func (d *dummyResponseWriter) Write(b []byte) (int, error) {
	return len(b), nil
}

func (d *dummyResponseWriter) WriteHeader(statusCode int) {
	// No-op
}

func (d *dummyResponseWriter) Flush() {
	// No-op
}

// responseBufPool holds scratch buffers for serializing a response
// head plus body before a single write to the connection.
var responseBufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, 0, 1024)
		return &buf
	},
}

// buildResponseBytes serializes a status line, headers, and body into
// a pooled buffer, returning ownership of the buffer to the caller.
// Both the synchronous write path (writeResponse) and the deferred
// AsyncWrite path (connState.DeferredWrite) build their wire bytes
// through this one function so gzip, header ordering, and
// Content-Length accounting never drift between the two.
func buildResponseBytes(statusCode int, header Header, body []byte) []byte {
	headerBytes := 0
	for k, values := range header {
		for _, v := range values {
			headerBytes += len(k) + len(v) + 4
		}
	}

	bufPtr := responseBufPool.Get().(*[]byte)
	buf := (*bufPtr)[:0]
	if size := httpparser.EstimateResponseSize(statusCode, headerBytes, len(body)); cap(buf) < size {
		buf = make([]byte, 0, size)
	}

	buf = httpparser.WriteStatusLine(buf, statusCode)
	buf = httpparser.WriteDateHeader(buf)
	buf = httpparser.WriteHeaderLine(buf, HeaderContentLength, strconv.Itoa(len(body)))
	for k, values := range header {
		for _, v := range values {
			buf = httpparser.WriteHeaderLine(buf, k, v)
		}
	}
	buf = httpparser.WriteHeadEnd(buf)
	buf = append(buf, body...)

	*bufPtr = buf[:0]
	responseBufPool.Put(bufPtr)

	out := make([]byte, len(buf))
	copy(out, buf)
	return out
}

// writeResponse serializes and writes a response synchronously on the
// calling (event-loop) goroutine.
func writeResponse(c gnet.Conn, statusCode int, header Header, body []byte) {
	buf := buildResponseBytes(statusCode, header, body)
	c.Write(buf)
}

// writeResponseNoLength writes a response with no Content-Length and
// no body, for status lines (like 101) where a length doesn't apply.
func writeResponseNoLength(c gnet.Conn, statusCode int, header Header) {
	buf := httpparser.WriteStatusLine(nil, statusCode)
	buf = httpparser.WriteDateHeader(buf)
	for k, values := range header {
		for _, v := range values {
			buf = httpparser.WriteHeaderLine(buf, k, v)
		}
	}
	buf = httpparser.WriteHeadEnd(buf)
	c.Write(buf)
}

// maybeGzip applies the optional gzip pass: bodies at least
// gzipenc.MinCompressSize bytes, with no Content-Encoding already set,
// are compressed when the client's Accept-Encoding lists gzip and the
// compressed form is strictly smaller than the original.
func maybeGzip(header Header, body []byte, acceptEncoding string) []byte {
	if len(body) < gzipenc.MinCompressSize {
		return body
	}
	if header.Get(HeaderContentEncoding) != "" {
		return body
	}
	if !gzipenc.AcceptsGzip(acceptEncoding) {
		return body
	}

	compressed, err := gzipenc.Encode(body)
	if err != nil || len(compressed) >= len(body) {
		return body
	}

	header.Set(HeaderContentEncoding, "gzip")
	return compressed
}

// processRequest runs the router over req and, unless the handler
// deferred the response, builds and writes it synchronously. It
// returns true when the handler called Ctx.Defer, in which case the
// caller must not release req or the Ctx - Ctx.Finish/DeferredWrite
// owns that cleanup once the response actually goes out.
func processRequest(hs *httpServer, req *Request, c gnet.Conn, cs *connState) bool {
	dummyWriter := getDummyWriter()

	ctx := GetContextFromRequest(dummyWriter, req)
	ctx.bindConn(cs, cs.arena)
	ctx.acceptEncoding = req.Header.Get(HeaderAcceptEncoding)

	// Set server header directly in context header
	ctx.Set("Server", "arcflow")

	// Process the request
	hs.router.ServeHTTP(ctx, ctx.Request)

	if ctx.deferred {
		releaseDummyWriter(dummyWriter)
		return true
	}
	defer releaseDummyWriter(dummyWriter)
	defer ReleaseContext(ctx)

	// Handle errors
	if err := ctx.GetError(); err != nil {
		if hs.errorHandler != nil {
			hs.errorHandler(ctx)
		} else {
			defaultErrorHandler(ctx)
		}
	}

	// Ensure headers set after c.Next() in middleware are included in the response
	if ctx.Writer != nil {
		ctx.Writer.Flush()
	}

	// Handle HEAD requests specially per HTTP spec: headers describe
	// the body that a GET would have returned, but no body is sent.
	if req.Method == MethodHead {
		if ctx.statusCode == StatusInternalServerError {
			ctx.statusCode = StatusOK
		}
		writeResponse(c, ctx.statusCode, ctx.header, nil)
		return false
	}

	body := maybeGzip(ctx.header, ctx.body, ctx.acceptEncoding)
	writeResponse(c, ctx.statusCode, ctx.header, body)
	return false
}

func (s *Server) Router() *Router {
	return s.router
}

// Listen starts the server and listens for incoming connections.
func (s *Server) Listen(addr string) error {
	// Clean up the address to ensure it is in the correct format
	if addr == "" {
		addr = ":3000" // Default address if none provided
	}

	// Set the address in the httpServer struct
	s.httpServer.addr = "tcp://" + addr

	// Initialize the logger
	initLogger(log.InfoLevel)

	// Display startup message if not disabled
	if !s.disableStartupMessage {
		displayStartupMessage(addr)
	}

	// Start the server directly
	return gnet.Run(
		s.httpServer,
		s.httpServer.addr,
		gnet.WithMulticore(s.httpServer.multicore),
		gnet.WithReuseAddr(true),
		gnet.WithReusePort(true),
		gnet.WithLogger(&noopLogger{}),
		gnet.WithTCPNoDelay(gnet.TCPNoDelay),
		gnet.WithTCPKeepAlive(s.httpServer.idleTimeout),
		gnet.WithReadBufferCap(int(s.httpServer.readTimeout.Seconds())*1024),
		gnet.WithWriteBufferCap(int(s.httpServer.writeTimeout.Seconds())*1024),
	)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.eng.Stop(ctx)
}

// GET registers a new route with the GET method.
func (s *Server) GET(pattern string, handlers ...Handler) *Router {
	return s.router.GET(pattern, handlers...)
}

// HEAD registers a new route with the HEAD method.
func (s *Server) HEAD(pattern string, handlers ...Handler) *Router {
	return s.router.HEAD(pattern, handlers...)
}

// POST registers a new route with the POST method.
func (s *Server) POST(pattern string, handlers ...Handler) *Router {
	return s.router.POST(pattern, handlers...)
}

// PUT registers a new route with the PUT method.
func (s *Server) PUT(pattern string, handlers ...Handler) *Router {
	return s.router.PUT(pattern, handlers...)
}

// DELETE registers a new route with the DELETE method.
func (s *Server) DELETE(pattern string, handlers ...Handler) *Router {
	return s.router.DELETE(pattern, handlers...)
}

// CONNECT registers a new route with the CONNECT method.
func (s *Server) CONNECT(pattern string, handlers ...Handler) *Router {
	return s.router.CONNECT(pattern, handlers...)
}

// OPTIONS registers a new route with the OPTIONS method.
func (s *Server) OPTIONS(pattern string, handlers ...Handler) *Router {
	return s.router.OPTIONS(pattern, handlers...)
}

// TRACE registers a new route with the TRACE method.
func (s *Server) TRACE(pattern string, handlers ...Handler) *Router {
	return s.router.TRACE(pattern, handlers...)
}

// PATCH registers a new route with the PATCH method.
func (s *Server) PATCH(pattern string, handlers ...Handler) *Router {
	return s.router.PATCH(pattern, handlers...)
}

// Use adds middleware to the router.
func (s *Server) Use(middleware ...interface{}) {
	s.router.Use(middleware...)
}

// NotFound sets the handler for requests that don't match any route.
func (s *Server) NotFound(handler Handler) {
	s.router.NotFound = handler
}

// Group creates a new route group with the given prefix.
func (s *Server) Group(prefix string) *Group {
	return s.router.Group(prefix)
}

// OnWebSocket registers the callback invoked once per connection right
// after a WebSocket upgrade succeeds, letting the application wire up
// ws.MessageCallbacks against the raw connection.
func (s *Server) OnWebSocket(fn func(conn gnet.Conn, d *ws.Decoder)) {
	s.router.WebSocket = fn
}

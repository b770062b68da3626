// Package httpparser implements the wire-level HTTP/1.x codec: a
// streaming request parser built around an explicit phase machine,
// and a response writer that serializes status line, headers and
// body directly into a pooled buffer.
//
// The parser is fed arbitrary byte chunks through Execute and reports
// how many bytes it consumed; callers are expected to slide any
// unconsumed remainder into the next read so pipelined requests on
// the same connection are handled one at a time without copying more
// than necessary.
package httpparser

import (
	"bytes"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/evanphx/wildcat"

	"github.com/arcflowhq/arcflow/internal/unsafe"
)

// Phase identifies where a RequestParser is in the request lifecycle.
// HeadPending covers both the request line and the header block: a
// wildcat scan only makes sense once the whole head has arrived, so
// the two phases spec.md describes separately are driven together
// here, gated on the buffered double-CRLF.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseHeadPending
	PhaseBody
	PhaseChunkSize
	PhaseChunkData
	PhaseChunkEnd
	PhaseComplete
	PhaseError
)

var (
	crlf      = []byte("\r\n\r\n")
	lastChunk = []byte("0\r\n\r\n")

	contentLengthBytes    = []byte("Content-Length")
	transferEncodingBytes = []byte("Transfer-Encoding")
	chunkedBytes          = []byte("chunked")
)

// Errors returned by RequestParser.Execute. Every one of them moves
// the parser into PhaseError; it must be Reset before reuse.
var (
	ErrHeadTooLarge    = errors.New("httpparser: request head exceeds limit")
	ErrInvalidChunk    = errors.New("httpparser: malformed chunk")
	ErrChunkTooLarge   = errors.New("httpparser: chunk size overflows limit")
	ErrBadRequestLine  = errors.New("httpparser: malformed request line")
	ErrBufferOverflow  = errors.New("httpparser: buffered input exceeds 1MiB cap")
)

// maxBufferedBytes bounds how much unparsed input a single Execute
// window is allowed to accumulate before a slow or malicious peer is
// cut off.
const maxBufferedBytes = 1 << 20

// HeaderField is one parsed request header, kept in arrival order.
type HeaderField struct {
	Name, Value []byte
}

// Callbacks lets a caller observe parsing progress without waiting
// for the whole message; every field is optional.
type Callbacks struct {
	OnMessageBegin     func()
	OnURL              func(method, path, version []byte)
	OnHeaderField      func(name, value []byte)
	OnHeadersComplete  func()
	OnBody             func(chunk []byte)
	OnMessageComplete  func()
	OnError            func(err error)
}

var parserPool = sync.Pool{New: func() interface{} { return wildcat.NewHTTPParser() }}

// RequestParser is a streaming HTTP/1.x request parser. It is not
// safe for concurrent use; each connection owns exactly one.
type RequestParser struct {
	phase Phase

	buf []byte

	wild *wildcat.HTTPParser

	Method, URL, Version []byte
	Headers              []HeaderField

	contentLength    int64
	chunked          bool
	chunkRemain      int64
	chunkSizeWasZero bool

	maxHeadSize int

	Callbacks Callbacks
}

// NewRequestParser returns a RequestParser ready to Execute against.
func NewRequestParser() *RequestParser {
	return &RequestParser{
		phase:         PhaseInit,
		wild:          parserPool.Get().(*wildcat.HTTPParser),
		contentLength: -1,
		maxHeadSize:   16 * 1024,
	}
}

// Phase reports the parser's current position in the request
// lifecycle.
func (p *RequestParser) Phase() Phase { return p.phase }

// SetMaxHeadSize overrides the default 16KiB cap on a buffered
// request line plus header block.
func (p *RequestParser) SetMaxHeadSize(n int) { p.maxHeadSize = n }

// Reset returns the parser to PhaseInit, ready to parse the next
// request on the same connection. The backing buffer is kept so
// subsequent requests reuse its capacity.
func (p *RequestParser) Reset() {
	p.phase = PhaseInit
	p.buf = p.buf[:0]
	p.Method, p.URL, p.Version = nil, nil, nil
	p.Headers = p.Headers[:0]
	p.contentLength = -1
	p.chunked = false
	p.chunkRemain = 0
}

// Release returns the parser's wildcat scanner to its pool. Call it
// when the owning connection closes.
func (p *RequestParser) Release() {
	if p.wild != nil {
		parserPool.Put(p.wild)
		p.wild = nil
	}
}

func (p *RequestParser) fail(err error) (int, error) {
	p.phase = PhaseError
	if p.Callbacks.OnError != nil {
		p.Callbacks.OnError(err)
	}
	return 0, err
}

// Execute feeds data into the parser and returns how many bytes of
// data were consumed. A return of (0, nil) with the parser still
// short of PhaseComplete means more data is needed. Once a message
// reaches PhaseComplete, call Reset before feeding the next one;
// Execute returns 0 consumed and does nothing once in PhaseComplete
// or PhaseError.
func (p *RequestParser) Execute(data []byte) (int, error) {
	if p.phase == PhaseComplete || p.phase == PhaseError {
		return 0, nil
	}
	if len(data) == 0 {
		return 0, nil
	}

	if p.phase == PhaseInit {
		p.phase = PhaseHeadPending
		if p.Callbacks.OnMessageBegin != nil {
			p.Callbacks.OnMessageBegin()
		}
	}

	consumedTotal := 0

	if p.phase == PhaseHeadPending {
		n, err := p.feedHead(data)
		consumedTotal += n
		if err != nil {
			p.fail(err)
			return consumedTotal, err
		}
		if p.phase == PhaseHeadPending {
			// still waiting on the rest of the head
			return consumedTotal, nil
		}
		data = data[n:]
	}

	for len(data) > 0 || p.phase == PhaseBody || p.phase == PhaseChunkSize {
		switch p.phase {
		case PhaseBody:
			n := p.consumeBody(data)
			consumedTotal += n
			data = data[n:]
			if p.phase != PhaseBody {
				continue
			}
			return consumedTotal, nil
		case PhaseChunkSize:
			n, done, err := p.consumeChunkSize(data)
			consumedTotal += n
			data = data[n:]
			if err != nil {
				p.fail(err)
				return consumedTotal, err
			}
			if !done {
				return consumedTotal, nil
			}
		case PhaseChunkData:
			n := p.consumeChunkData(data)
			consumedTotal += n
			data = data[n:]
			if p.phase == PhaseChunkData {
				return consumedTotal, nil
			}
		case PhaseChunkEnd:
			n, ok := p.consumeChunkEnd(data)
			consumedTotal += n
			data = data[n:]
			if !ok {
				return consumedTotal, nil
			}
		default:
			return consumedTotal, nil
		}
	}

	return consumedTotal, nil
}

// feedHead buffers data until a full request line + header block is
// available. wildcat.Parser.Parse is run first as a cheap structural
// scan that locates the body offset and rejects malformed heads
// without us having to walk the bytes twice; the request line and
// header fields themselves are then pulled out with a direct,
// zero-copy byte scan so their original order is preserved (wildcat
// only exposes header lookup by name, not enumeration).
func (p *RequestParser) feedHead(data []byte) (int, error) {
	prior := len(p.buf)
	p.buf = append(p.buf, data...)

	idx := bytes.Index(p.buf, crlf)
	if idx == -1 {
		if len(p.buf) > maxBufferedBytes {
			return len(data), ErrBufferOverflow
		}
		if len(p.buf) > p.maxHeadSize {
			return len(data), ErrHeadTooLarge
		}
		return len(data), nil
	}
	headLen := idx + 4
	head := p.buf[:headLen]

	if _, err := p.wild.Parse(head); err != nil {
		return len(data), ErrBadRequestLine
	}

	if err := p.scanHead(head); err != nil {
		return len(data), err
	}

	if p.Callbacks.OnURL != nil {
		p.Callbacks.OnURL(p.Method, p.URL, p.Version)
	}
	if p.Callbacks.OnHeadersComplete != nil {
		p.Callbacks.OnHeadersComplete()
	}

	p.resolveBodyFraming()

	consumed := headLen - prior
	if consumed > len(data) {
		consumed = len(data)
	}
	p.buf = p.buf[:0]

	switch {
	case p.chunked:
		p.phase = PhaseChunkSize
	case p.contentLength > 0:
		p.phase = PhaseBody
		p.chunkRemain = p.contentLength
	default:
		p.phase = PhaseComplete
		if p.Callbacks.OnMessageComplete != nil {
			p.Callbacks.OnMessageComplete()
		}
	}
	return consumed, nil
}

// scanHead splits a complete request line + header block into
// Method/URL/Version and an ordered Headers list, all as slices into
// the caller's backing array. Folded header continuation lines are
// rejected rather than joined, matching the stricter posture of
// modern HTTP/1.1 implementations.
func (p *RequestParser) scanHead(head []byte) error {
	lineEnd := bytes.IndexByte(head, '\n')
	if lineEnd == -1 {
		return ErrBadRequestLine
	}
	reqLine := trimCR(head[:lineEnd])

	sp1 := bytes.IndexByte(reqLine, ' ')
	if sp1 == -1 {
		return ErrBadRequestLine
	}
	rest := reqLine[sp1+1:]
	sp2 := bytes.IndexByte(rest, ' ')
	if sp2 == -1 {
		return ErrBadRequestLine
	}

	p.Method = reqLine[:sp1]
	p.URL = rest[:sp2]
	p.Version = rest[sp2+1:]

	p.Headers = p.Headers[:0]
	rest = head[lineEnd+1:]
	for len(rest) > 2 { // a bare "\r\n" ends the header block
		nl := bytes.IndexByte(rest, '\n')
		if nl == -1 {
			break
		}
		line := trimCR(rest[:nl])
		rest = rest[nl+1:]
		if len(line) == 0 {
			break
		}
		if line[0] == ' ' || line[0] == '\t' {
			return ErrBadRequestLine
		}
		colon := bytes.IndexByte(line, ':')
		if colon == -1 {
			return ErrBadRequestLine
		}
		name := line[:colon]
		value := bytes.TrimLeft(line[colon+1:], " \t")
		p.Headers = append(p.Headers, HeaderField{Name: name, Value: value})
		if p.Callbacks.OnHeaderField != nil {
			p.Callbacks.OnHeaderField(name, value)
		}
	}
	return nil
}

func trimCR(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == '\r' {
		return b[:len(b)-1]
	}
	return b
}

// resolveBodyFraming applies RFC 7230 §3.3.3: a Transfer-Encoding of
// chunked always wins over any Content-Length present on the same
// message.
func (p *RequestParser) resolveBodyFraming() {
	p.contentLength = -1
	p.chunked = false
	for _, h := range p.Headers {
		if equalFold(h.Name, transferEncodingBytes) {
			if bytes.Contains(bytes.ToLower(h.Value), chunkedBytes) {
				p.chunked = true
			}
		}
	}
	if p.chunked {
		return
	}
	for _, h := range p.Headers {
		if equalFold(h.Name, contentLengthBytes) {
			n, err := strconv.ParseInt(unsafe.B2S(h.Value), 10, 63)
			if err == nil && n >= 0 {
				p.contentLength = n
			}
		}
	}
}

func equalFold(a, b []byte) bool {
	return bytes.EqualFold(a, b)
}

func (p *RequestParser) consumeBody(data []byte) int {
	n := int64(len(data))
	if n > p.chunkRemain {
		n = p.chunkRemain
	}
	if n > 0 && p.Callbacks.OnBody != nil {
		p.Callbacks.OnBody(data[:n])
	}
	p.chunkRemain -= n
	if p.chunkRemain == 0 {
		p.phase = PhaseComplete
		if p.Callbacks.OnMessageComplete != nil {
			p.Callbacks.OnMessageComplete()
		}
	}
	return int(n)
}

// consumeChunkSize parses one "<hex-size>[;ext]\r\n" line. done is
// false when the line hasn't fully arrived yet.
func (p *RequestParser) consumeChunkSize(data []byte) (consumed int, done bool, err error) {
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		if len(data) > 64 {
			return len(data), false, ErrInvalidChunk
		}
		return 0, false, nil
	}
	line := data[:idx]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	if semi := bytes.IndexByte(line, ';'); semi != -1 {
		line = line[:semi]
	}
	size, perr := strconv.ParseInt(unsafe.B2S(line), 16, 63)
	if perr != nil || size < 0 {
		return idx + 1, false, ErrInvalidChunk
	}
	if size > maxBufferedBytes {
		return idx + 1, false, ErrChunkTooLarge
	}
	p.chunkRemain = size
	p.chunkSizeWasZero = size == 0
	if size == 0 {
		p.phase = PhaseChunkEnd
	} else {
		p.phase = PhaseChunkData
	}
	return idx + 1, true, nil
}

func (p *RequestParser) consumeChunkData(data []byte) int {
	n := int64(len(data))
	if n > p.chunkRemain {
		n = p.chunkRemain
	}
	if n > 0 && p.Callbacks.OnBody != nil {
		p.Callbacks.OnBody(data[:n])
	}
	p.chunkRemain -= n
	if p.chunkRemain == 0 {
		p.phase = PhaseChunkEnd
	}
	return int(n)
}

// consumeChunkEnd swallows the CRLF trailing a chunk's data, or the
// terminating CRLF after the zero-size chunk. Reaching here from a
// zero-size chunk marks the message complete.
func (p *RequestParser) consumeChunkEnd(data []byte) (int, bool) {
	if len(data) < 2 {
		return 0, false
	}
	if data[0] != '\r' || data[1] != '\n' {
		p.fail(ErrInvalidChunk)
		return 0, true
	}
	if p.chunkSizeWasZero {
		p.phase = PhaseComplete
		if p.Callbacks.OnMessageComplete != nil {
			p.Callbacks.OnMessageComplete()
		}
	} else {
		p.phase = PhaseChunkSize
	}
	return 2, true
}

package ws

import (
	"unicode/utf8"

	"github.com/valyala/bytebufferpool"
)

// MessageCallbacks lets a caller react to decoded WebSocket traffic
// without owning the reassembly or control-frame bookkeeping.
type MessageCallbacks struct {
	OnText   func(data []byte)
	OnBinary func(data []byte)
	OnPing   func(payload []byte)
	OnPong   func(payload []byte)
	OnClose  func(code uint16, reason string)
	OnError  func(err error)
}

// Decoder turns a byte stream into WebSocket messages, handling
// fragmentation reassembly and the ping/pong/close control protocol
// itself. One Decoder belongs to exactly one upgraded connection.
type Decoder struct {
	Callbacks MessageCallbacks

	// Write sends raw bytes back to the peer, used for automatic pong
	// replies and close-frame echoes. It is normally the connection's
	// own write method.
	Write func(p []byte) error

	MaxFramePayload   int
	MaxMessagePayload int

	fragmenting bool
	fragOpcode  Opcode
	fragBuf     *bytebufferpool.ByteBuffer

	closeSent bool
}

// NewDecoder returns a Decoder with the standard 16MiB message cap.
func NewDecoder() *Decoder {
	return &Decoder{MaxMessagePayload: 16 << 20}
}

// Feed parses as many complete frames as are available at the front
// of data and returns how many bytes were consumed; the caller is
// responsible for discarding that many bytes from its read buffer,
// exactly as with the HTTP parser.
func (d *Decoder) Feed(data []byte) (int, error) {
	consumedTotal := 0
	for len(data) > 0 {
		frame, n, err := DecodeFrame(data, d.MaxFramePayload)
		if err != nil {
			d.fail(err)
			return consumedTotal, err
		}
		if n == 0 {
			break
		}
		data = data[n:]
		consumedTotal += n

		if err := d.dispatch(frame); err != nil {
			d.fail(err)
			return consumedTotal, err
		}
	}
	return consumedTotal, nil
}

func (d *Decoder) fail(err error) {
	if d.Callbacks.OnError != nil {
		d.Callbacks.OnError(err)
	}
}

func (d *Decoder) dispatch(f Frame) error {
	switch f.Opcode {
	case OpPing:
		if d.Callbacks.OnPing != nil {
			d.Callbacks.OnPing(f.Payload)
		}
		if d.Write != nil {
			return d.Write(EncodeFrame(nil, OpPong, f.Payload, true))
		}
		return nil
	case OpPong:
		if d.Callbacks.OnPong != nil {
			d.Callbacks.OnPong(f.Payload)
		}
		return nil
	case OpClose:
		code, reason, err := ValidateCloseFrame(f.Payload)
		if err != nil {
			if d.Write != nil && !d.closeSent {
				d.closeSent = true
				_ = d.Write(EncodeFrame(nil, OpClose, closePayload(1002, ""), true))
			}
			return err
		}
		if d.Callbacks.OnClose != nil {
			d.Callbacks.OnClose(code, reason)
		}
		if d.Write != nil && !d.closeSent {
			d.closeSent = true
			return d.Write(EncodeFrame(nil, OpClose, f.Payload, true))
		}
		return nil
	case OpText, OpBinary:
		if d.fragmenting {
			return ErrNestedFragment
		}
		if f.Fin {
			return d.deliver(f.Opcode, f.Payload)
		}
		d.fragmenting = true
		d.fragOpcode = f.Opcode
		d.fragBuf = bytebufferpool.Get()
		_, _ = d.fragBuf.Write(f.Payload)
		return d.checkFragmentSize()
	case OpContinuation:
		if !d.fragmenting {
			return ErrContinuationNoInit
		}
		_, _ = d.fragBuf.Write(f.Payload)
		if err := d.checkFragmentSize(); err != nil {
			return err
		}
		if f.Fin {
			opcode := d.fragOpcode
			payload := d.fragBuf.B
			d.resetFragment()
			return d.deliver(opcode, payload)
		}
		return nil
	}
	return nil
}

func (d *Decoder) checkFragmentSize() error {
	if d.MaxMessagePayload > 0 && d.fragBuf.Len() > d.MaxMessagePayload {
		d.resetFragment()
		return ErrFrameTooLarge
	}
	return nil
}

func (d *Decoder) resetFragment() {
	if d.fragBuf != nil {
		bytebufferpool.Put(d.fragBuf)
	}
	d.fragBuf = nil
	d.fragmenting = false
}

func (d *Decoder) deliver(opcode Opcode, payload []byte) error {
	if opcode == OpText {
		if !utf8.Valid(payload) {
			return ErrInvalidUTF8
		}
		if d.Callbacks.OnText != nil {
			d.Callbacks.OnText(payload)
		}
		return nil
	}
	if d.Callbacks.OnBinary != nil {
		d.Callbacks.OnBinary(payload)
	}
	return nil
}

func closePayload(code uint16, reason string) []byte {
	buf := make([]byte, 2+len(reason))
	buf[0] = byte(code >> 8)
	buf[1] = byte(code)
	copy(buf[2:], reason)
	return buf
}

package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoderDeliversSingleMaskedTextFrame(t *testing.T) {
	d := NewDecoder()
	var got string
	d.Callbacks.OnText = func(data []byte) { got = string(data) }

	wire := EncodeMaskedFrame(nil, OpText, []byte("hello"), true)
	n, err := d.Feed(wire)
	require.NoError(t, err)
	assert.Equal(t, len(wire), n)
	assert.Equal(t, "hello", got)
}

func TestDecoderReassemblesFragmentedMessage(t *testing.T) {
	d := NewDecoder()
	var got string
	d.Callbacks.OnText = func(data []byte) { got = string(data) }

	var wire []byte
	wire = EncodeFrame(wire, OpText, []byte("hel"), false)
	wire = EncodeFrame(wire, OpContinuation, []byte("lo"), true)

	_, err := d.Feed(wire)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestDecoderAutoReplysToPing(t *testing.T) {
	d := NewDecoder()
	var written []byte
	d.Write = func(p []byte) error { written = append(written, p...); return nil }

	wire := EncodeFrame(nil, OpPing, []byte("ping-data"), true)
	_, err := d.Feed(wire)
	require.NoError(t, err)

	frame, _, err := DecodeFrame(written, 0)
	require.NoError(t, err)
	assert.Equal(t, OpPong, frame.Opcode)
	assert.Equal(t, "ping-data", string(frame.Payload))
}

func TestDecoderContinuationWithoutFragmentErrors(t *testing.T) {
	d := NewDecoder()
	wire := EncodeFrame(nil, OpContinuation, []byte("x"), true)
	_, err := d.Feed(wire)
	assert.ErrorIs(t, err, ErrContinuationNoInit)
}

func TestDecoderNewFragmentBeforePriorFinishesErrors(t *testing.T) {
	d := NewDecoder()
	var wire []byte
	wire = EncodeFrame(wire, OpText, []byte("a"), false)
	wire = EncodeFrame(wire, OpText, []byte("b"), false)
	_, err := d.Feed(wire)
	assert.ErrorIs(t, err, ErrNestedFragment)
}

func TestDecoderInvalidUTF8AbortsMessage(t *testing.T) {
	d := NewDecoder()
	d.Callbacks.OnText = func(data []byte) { t.Fatal("should not deliver invalid utf-8") }
	wire := EncodeFrame(nil, OpText, []byte{0xff, 0xfe, 0xfd}, true)
	_, err := d.Feed(wire)
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestDecoderCloseEchoesFrame(t *testing.T) {
	d := NewDecoder()
	var code uint16
	d.Callbacks.OnClose = func(c uint16, reason string) { code = c }
	var written []byte
	d.Write = func(p []byte) error { written = append(written, p...); return nil }

	wire := EncodeFrame(nil, OpClose, closePayload(1000, "done"), true)
	_, err := d.Feed(wire)
	require.NoError(t, err)
	assert.Equal(t, uint16(1000), code)
	assert.NotEmpty(t, written)
}

func TestDecoderFeedReturnsZeroOnPartialFrame(t *testing.T) {
	d := NewDecoder()
	wire := EncodeFrame(nil, OpText, []byte("hello"), true)
	n, err := d.Feed(wire[:2])
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

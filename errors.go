package arcflow

import "errors"

// Sentinel errors for the error kinds the core surfaces. Handlers and
// middleware can match these with errors.Is, and HttpError wraps them
// with errors.As the same way defaultErrorHandler already does for
// status-coded errors.
var (
	// ErrMalformedProtocol is reported when a start line, header block,
	// chunk framing, or WebSocket frame structure violates the wire
	// format. It is fatal to the connection.
	ErrMalformedProtocol = errors.New("arcflow: malformed protocol")

	// ErrLimitExceeded is reported when a header size, header count,
	// URL length, or arena allocation limit is hit while parsing.
	ErrLimitExceeded = errors.New("arcflow: limit exceeded")

	// ErrRouteNotFound is reported by the router's default NotFound
	// handler; it does not close the connection.
	ErrRouteNotFound = errors.New("arcflow: route not found")

	// ErrDeferredOnClosedConnection is returned by Finish when the
	// connection the deferred Ctx belonged to is already closing. The
	// defer token is released without attempting a write.
	ErrDeferredOnClosedConnection = errors.New("arcflow: finish called on a closed connection")

	// ErrUpgradeRejected is returned when a WebSocket upgrade's
	// preconditions (Connection/Upgrade/Sec-WebSocket-Version/
	// Sec-WebSocket-Key) are not satisfied.
	ErrUpgradeRejected = errors.New("arcflow: websocket upgrade rejected")

	// ErrWebSocketProtocol is reported for invalid opcodes, unmasked
	// client frames, bad UTF-8, or bad close codes once a connection
	// has switched to WebSocket mode.
	ErrWebSocketProtocol = errors.New("arcflow: websocket protocol error")

	// ErrAlreadyFinished is returned by a second call to Finish on the
	// same Ctx; the second call never writes.
	ErrAlreadyFinished = errors.New("arcflow: Finish already called")

	// ErrNotDeferred is returned by Finish when called on a Ctx that
	// never called Defer.
	ErrNotDeferred = errors.New("arcflow: Finish called without a prior Defer")
)

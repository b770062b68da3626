package arcflow

import "time"

// ArenaConfig tunes the per-connection slab allocator that backs
// request body accumulation and response body growth.
type ArenaConfig struct {
	// BlockCount is the number of slots carved out of each new backing
	// chunk per size class. Larger values trade memory for fewer
	// chunk allocations under sustained load. Zero uses the
	// allocator's own default (64).
	BlockCount int

	// Locking makes the arena safe for a handler to hand off to a
	// worker-pool goroutine that touches it concurrently with the
	// event-loop thread. Disabled by default since most handlers only
	// read arena-backed data on the loop goroutine itself.
	Locking bool
}

// ParserConfig tunes the HTTP/1.x request parser's limits.
type ParserConfig struct {
	// MaxHeaderSize caps the buffered request line + header block, in
	// bytes, before the parser fails the connection with
	// ErrLimitExceeded. Zero uses the parser's own default (16KiB).
	MaxHeaderSize int

	// MaxHeaderCount caps the number of header fields a single request
	// may carry. Zero disables the check.
	MaxHeaderCount int

	// MaxURLSize caps the length of the request-target. Zero disables
	// the check.
	MaxURLSize int

	// Strict is stored with the other parser limits but is not read by
	// the server or the parser: requests are parsed the same way whether
	// it is set or not, and a missing Host header is not rejected.
	Strict bool
}

// Config represents server configuration options.
type Config struct {
	// ReadTimeout is the maximum duration for reading the entire request, including the body.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled.
	IdleTimeout time.Duration

	// DisableStartupMessage determines whether to print the startup message when the server starts.
	DisableStartupMessage bool

	// ErrorHandler is called when an error occurs during request processing.
	ErrorHandler Handler

	// Arena tunes the per-connection slab allocator.
	Arena ArenaConfig

	// Parser tunes the HTTP/1.x request parser.
	Parser ParserConfig
}

// DefaultConfig returns a default server configuration with pre-configured timeouts
// and other settings suitable for most applications.
// The default configuration includes:
// - ReadTimeout: 5 seconds
// - WriteTimeout: 10 seconds
// - IdleTimeout: 15 seconds
// - DisableStartupMessage: false
// - ErrorHandler: default error handler
func DefaultConfig() Config {
	return Config{
		ReadTimeout:           5 * time.Second,
		WriteTimeout:          10 * time.Second,
		IdleTimeout:           15 * time.Second,
		DisableStartupMessage: false,
		ErrorHandler:          defaultErrorHandler,
		Arena: ArenaConfig{
			BlockCount: 64,
			Locking:    false,
		},
		Parser: ParserConfig{
			MaxHeaderSize:  16 * 1024,
			MaxHeaderCount: 100,
			MaxURLSize:     8 * 1024,
			Strict:         false,
		},
	}
}

// Package arena implements a slotted slab allocator used to carve
// short-lived scratch memory out of a handful of large backing chunks
// instead of issuing one Go heap allocation per request. Every live
// connection owns one Arena; it is reset between requests and
// destroyed when the connection closes.
//
// Allocations are opaque Ptr values rather than []byte so that Size
// and Free never need the caller to remember which class an
// allocation came from: the class index travels with the allocation
// itself, in an 8-byte header immediately preceding the returned
// memory.
package arena

import (
	"errors"
	"math"
	"sync"
	"unsafe"
)

// ErrTooLarge is returned when a requested size cannot be represented
// without overflowing the allocator's internal bookkeeping.
var ErrTooLarge = errors.New("arena: requested size overflows allocator limits")

// ErrDestroyed is returned by any operation attempted on an Arena
// after Destroy has been called on it.
var ErrDestroyed = errors.New("arena: use after destroy")

const (
	headerSize         = 8
	oversizeHeaderSize = int(unsafe.Sizeof(oversizeHeader{}))
	numClasses         = 10
	oversizeClass      = 255
	defaultBlockCount  = 64
)

// classSizes are the usable-byte sizes of the fixed size classes, in
// ascending order. A request for n bytes is rounded up to the
// smallest class that can hold it; anything larger than the last
// class falls through to the oversize path.
var classSizes = [numClasses]int{16, 32, 64, 128, 256, 512, 1024, 2048, 4096, 8192}

// slotHeader is written immediately before every allocation, classed
// or oversize. Its class field is the only state Size and Free need
// to operate in O(1) directly from a Ptr.
type slotHeader struct {
	class uint8
	_     [7]byte
}

// oversizeHeader follows the slotHeader for allocations that did not
// fit any fixed class. It records the exact requested length (so
// Size reports what the caller asked for, not a rounded-up class
// size) and the node that threads the allocation into the arena's
// oversize list for O(1) Free.
type oversizeHeader struct {
	size int
	node *oversizeNode
}

// Ptr is an opaque handle returned by Alloc. The zero Ptr is the
// null pointer: Free and Size treat it as a no-op / zero, matching
// the conventions of Realloc(null, n) and Realloc(p, 0).
type Ptr struct {
	raw unsafe.Pointer
}

func (p Ptr) isNil() bool { return p.raw == nil }

func classFor(n int) (idx int, size int, ok bool) {
	for i, sz := range classSizes {
		if n <= sz {
			return i, sz, true
		}
	}
	return 0, 0, false
}

type chunk struct {
	mem    []byte
	cursor int
}

type sizeClass struct {
	slotSize int
	chunks   []*chunk
	free     []Ptr
}

// Arena is a slotted slab allocator. It is not safe for concurrent
// use unless constructed with WithLocking.
type Arena struct {
	mu         *sync.Mutex
	classes    [numClasses]sizeClass
	oversize   oversizeList
	blockCount int
	destroyed  bool
}

// Option configures an Arena at construction time.
type Option func(*Arena)

// WithLocking makes every Arena method safe for concurrent use by
// guarding it with a single internal mutex. Arenas are owned by a
// single connection in the common case, so locking defaults to off.
func WithLocking() Option {
	return func(a *Arena) { a.mu = &sync.Mutex{} }
}

// WithBlockCount overrides the number of slots carved out of each new
// backing chunk. The default is 64 slots per chunk per size class.
func WithBlockCount(n int) Option {
	return func(a *Arena) {
		if n > 0 {
			a.blockCount = n
		}
	}
}

// New returns a ready-to-use Arena with all size-class free lists
// empty; chunks are allocated lazily on first use of each class.
func New(opts ...Option) *Arena {
	a := &Arena{blockCount: defaultBlockCount}
	for i, sz := range classSizes {
		a.classes[i] = sizeClass{slotSize: headerSize + sz}
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Arena) lock() {
	if a.mu != nil {
		a.mu.Lock()
	}
}

func (a *Arena) unlock() {
	if a.mu != nil {
		a.mu.Unlock()
	}
}

// Alloc returns a Ptr to at least n usable bytes. For n within the
// largest fixed class, the returned block's usable size is the class
// size (n rounded up); larger requests are served from a dedicated
// oversize allocation sized exactly to n.
func (a *Arena) Alloc(n int) (Ptr, error) {
	if n < 0 || n > math.MaxInt32 {
		return Ptr{}, ErrTooLarge
	}
	a.lock()
	defer a.unlock()
	if a.destroyed {
		return Ptr{}, ErrDestroyed
	}
	if idx, _, ok := classFor(n); ok {
		return a.allocClassed(idx), nil
	}
	return a.allocOversize(n)
}

func (a *Arena) allocClassed(idx int) Ptr {
	cls := &a.classes[idx]
	if len(cls.free) == 0 {
		a.growClass(idx)
	}
	last := len(cls.free) - 1
	p := cls.free[last]
	cls.free = cls.free[:last]
	return p
}

func (a *Arena) growClass(idx int) {
	cls := &a.classes[idx]
	mem := make([]byte, cls.slotSize*a.blockCount)
	c := &chunk{mem: mem}
	cls.chunks = append(cls.chunks, c)
	for i := 0; i < a.blockCount; i++ {
		slot := mem[i*cls.slotSize : (i+1)*cls.slotSize]
		hdr := (*slotHeader)(unsafe.Pointer(&slot[0]))
		hdr.class = uint8(idx)
		p := Ptr{raw: unsafe.Pointer(&slot[headerSize])}
		cls.free = append(cls.free, p)
	}
}

func (a *Arena) allocOversize(n int) (Ptr, error) {
	total := headerSize + oversizeHeaderSize + n
	if total < n {
		return Ptr{}, ErrTooLarge
	}
	mem := make([]byte, total)
	hdr := (*slotHeader)(unsafe.Pointer(&mem[0]))
	hdr.class = oversizeClass
	ohdr := (*oversizeHeader)(unsafe.Pointer(&mem[headerSize]))
	node := &oversizeNode{raw: mem}
	ohdr.size = n
	ohdr.node = node
	a.oversize.pushFront(node)
	return Ptr{raw: unsafe.Pointer(&mem[headerSize+oversizeHeaderSize])}, nil
}

func headerOf(p Ptr) *slotHeader {
	return (*slotHeader)(unsafe.Pointer(uintptr(p.raw) - headerSize))
}

// Size returns the number of usable bytes at p: the size class for a
// classed allocation, or the exact requested length for an oversize
// one. It is O(1) and requires only p, not the owning Arena.
func (a *Arena) Size(p Ptr) int {
	if p.isNil() {
		return 0
	}
	hdr := headerOf(p)
	if hdr.class == oversizeClass {
		ohdr := (*oversizeHeader)(unsafe.Pointer(uintptr(unsafe.Pointer(hdr)) + headerSize))
		return ohdr.size
	}
	return classSizes[hdr.class]
}

// Bytes returns a slice view over the usable bytes of p.
func (a *Arena) Bytes(p Ptr) []byte {
	if p.isNil() {
		return nil
	}
	n := a.Size(p)
	return unsafe.Slice((*byte)(p.raw), n)
}

// Free releases p back to its size class's free list, or unlinks and
// drops an oversize allocation. Freeing the zero Ptr is a no-op.
func (a *Arena) Free(p Ptr) {
	if p.isNil() {
		return
	}
	a.lock()
	defer a.unlock()
	if a.destroyed {
		return
	}
	hdr := headerOf(p)
	if hdr.class == oversizeClass {
		ohdr := (*oversizeHeader)(unsafe.Pointer(uintptr(unsafe.Pointer(hdr)) + headerSize))
		a.oversize.remove(ohdr.node)
		return
	}
	cls := &a.classes[hdr.class]
	cls.free = append(cls.free, p)
}

// Realloc resizes p to n bytes, preserving the lesser of the old and
// new usable lengths of content. Realloc(null, n) behaves like
// Alloc(n); Realloc(p, 0) behaves like Free(p) and returns the null
// Ptr.
func (a *Arena) Realloc(p Ptr, n int) (Ptr, error) {
	if p.isNil() {
		return a.Alloc(n)
	}
	if n == 0 {
		a.Free(p)
		return Ptr{}, nil
	}
	oldSize := a.Size(p)
	if idx, _, ok := classFor(n); ok {
		hdr := headerOf(p)
		if hdr.class != oversizeClass && int(hdr.class) == idx {
			return p, nil
		}
	}
	np, err := a.Alloc(n)
	if err != nil {
		return Ptr{}, err
	}
	copyLen := oldSize
	if n < copyLen {
		copyLen = n
	}
	copy(a.Bytes(np)[:copyLen], a.Bytes(p)[:copyLen])
	a.Free(p)
	return np, nil
}

// Reset relinks every block of every size class back into its free
// list and drops all oversize allocations, without releasing the
// backing chunks themselves. It is the fast path used between
// requests on the same connection.
func (a *Arena) Reset() {
	a.lock()
	defer a.unlock()
	if a.destroyed {
		return
	}
	for i := range a.classes {
		cls := &a.classes[i]
		cls.free = cls.free[:0]
		for _, c := range cls.chunks {
			for off := 0; off < len(c.mem); off += cls.slotSize {
				slot := c.mem[off : off+cls.slotSize]
				p := Ptr{raw: unsafe.Pointer(&slot[headerSize])}
				cls.free = append(cls.free, p)
			}
		}
	}
	a.oversize.clear()
}

// Destroy releases every backing chunk and oversize allocation held
// by the arena. The Arena must not be used afterward.
func (a *Arena) Destroy() {
	a.lock()
	defer a.unlock()
	for i := range a.classes {
		cls := &a.classes[i]
		cls.chunks = nil
		cls.free = nil
	}
	a.oversize.clear()
	a.destroyed = true
}

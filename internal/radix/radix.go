// Package radix implements the per-method route trees used by the
// router: a compact trie over path segments supporting literal
// segments and a single named ":param" child per node. There is no
// generic wildcard segment; static file serving, which does need to
// match an arbitrary remaining path, matches its prefix separately
// before ever consulting a tree.
package radix

import (
	"errors"
	"strings"
	"sync"

	"github.com/arcflowhq/arcflow/internal/unsafe"
)

// ErrParamConflict is returned by Insert when a path tries to
// register a parameter child with a different name than the one
// already registered at the same position, e.g. registering
// "/user/:id" after "/user/:name" (or vice versa).
var ErrParamConflict = errors.New("radix: conflicting parameter name at same position")

var segmentsPool = sync.Pool{
	New: func() interface{} { return make([]string, 0, 16) },
}

func getSegments() []string { return segmentsPool.Get().([]string) }

func releaseSegments(s []string) { segmentsPool.Put(s[:0]) }

// Kind identifies what a path segment matches against.
type Kind uint8

const (
	Static Kind = iota
	Param
)

// Node is one segment position in a method's route tree.
type Node struct {
	Path      string
	Kind      Kind
	ParamName string

	staticChildren []*Node
	paramChild     *Node

	Handler interface{}
	IsEnd   bool
}

func newNode(path string, kind Kind, paramName string) *Node {
	return &Node{Path: path, Kind: kind, ParamName: paramName}
}

// Tree is a single HTTP method's route tree.
type Tree struct {
	Root *Node
}

// NewTree returns an empty Tree.
func NewTree() *Tree {
	return &Tree{Root: newNode("", Static, "")}
}

// Insert registers handler at path. It returns ErrParamConflict if a
// differently-named parameter already occupies this position in the
// tree.
func (t *Tree) Insert(path string, handler interface{}) error {
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	segments := splitPath(path)
	defer releaseSegments(segments)

	current := t.Root
	for i, segment := range segments {
		if segment == "" {
			continue
		}

		if segment[0] == ':' {
			paramName := segment[1:]
			if current.paramChild != nil {
				if current.paramChild.ParamName != paramName {
					return ErrParamConflict
				}
			} else {
				current.paramChild = newNode(segment, Param, paramName)
			}
			current = current.paramChild
		} else {
			var match *Node
			for _, c := range current.staticChildren {
				if c.Path == segment {
					match = c
					break
				}
			}
			if match == nil {
				match = newNode(segment, Static, "")
				current.staticChildren = append(current.staticChildren, match)
			}
			current = match
		}

		if i == len(segments)-1 {
			current.IsEnd = true
			current.Handler = handler
		}
	}
	return nil
}

// Params receives each parameter's registered name and matched value
// as Find walks into a param child.
type Params interface {
	Add(name, value string)
}

// Find looks up path, writing any matched ":param" values into
// params (params may be nil to skip capture, e.g. for a
// method-not-allowed probe).
func (t *Tree) Find(path string, params Params) (interface{}, bool) {
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	segments := splitPath(path)
	defer releaseSegments(segments)
	return findNode(t.Root, segments, 0, params)
}

// FindBytes is Find over a byte-slice path, avoiding a string
// allocation for the common case of matching directly against
// request-line bytes.
func (t *Tree) FindBytes(path []byte, params Params) (interface{}, bool) {
	var pathStr string
	if len(path) == 0 || path[0] != '/' {
		pathStr = "/" + string(path)
	} else {
		pathStr = unsafe.B2S(path)
	}
	return t.Find(pathStr, params)
}

func findNode(node *Node, segments []string, index int, params Params) (interface{}, bool) {
	if index >= len(segments) {
		if node.IsEnd {
			return node.Handler, true
		}
		return nil, false
	}

	segment := segments[index]
	if segment == "" {
		return findNode(node, segments, index+1, params)
	}

	for _, c := range node.staticChildren {
		if c.Path == segment {
			if h, ok := findNode(c, segments, index+1, params); ok {
				return h, true
			}
			break
		}
	}

	if node.paramChild != nil {
		if params != nil {
			params.Add(node.paramChild.ParamName, segment)
		}
		return findNode(node.paramChild, segments, index+1, params)
	}

	return nil, false
}

func splitPath(path string) []string {
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}

	segments := getSegments()
	pathBytes := unsafe.S2B(path)

	start := 0
	for i := 0; i < len(pathBytes); i++ {
		if pathBytes[i] == '/' {
			if i > start {
				segments = append(segments, unsafe.B2S(pathBytes[start:i]))
			}
			start = i + 1
		}
	}
	if start < len(pathBytes) {
		segments = append(segments, unsafe.B2S(pathBytes[start:]))
	}

	return segments
}

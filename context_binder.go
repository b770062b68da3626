package arcflow

import (
	"errors"
	"fmt"
	"sync"

	"github.com/valyala/fastjson"
)

// jsonParserPool holds fastjson.Parser instances. Parsers are handed
// out for the lifetime of a Ctx rather than returned immediately
// after use, since the *fastjson.Value tree PeekJSON returns stays
// backed by the parser's internal arena until the next Parse call.
var jsonParserPool = sync.Pool{
	New: func() interface{} {
		return &fastjson.Parser{}
	},
}

func releaseJSONParser(p *fastjson.Parser) {
	jsonParserPool.Put(p)
}

// PeekJSON parses the request body as JSON and looks up the value at
// the given key path without unmarshaling into a struct. The returned
// *fastjson.Value is only valid until the Ctx is released; copy out
// any scalar before returning from the handler.
//
// With no keys, PeekJSON returns the root of the parsed document.
//
// Example usage in a route handler:
//
//	func MyHandler(c *arcflow.Ctx) {
//	    v, err := c.PeekJSON("user", "id")
//	    if err != nil {
//	        c.Error(err)
//	        return
//	    }
//	    id := v.GetInt()
//	}
func (c *Ctx) PeekJSON(keys ...string) (*fastjson.Value, error) {
	if len(c.Request.Body) == 0 {
		return nil, errors.New("request body is empty")
	}

	if c.jsonParser == nil {
		c.jsonParser = jsonParserPool.Get().(*fastjson.Parser)
	}

	root, err := c.jsonParser.ParseBytes(c.Request.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if len(keys) == 0 {
		return root, nil
	}

	v := root.Get(keys...)
	if v == nil {
		return nil, fmt.Errorf("key path %v not found", keys)
	}
	return v, nil
}

// QueryJSONString is a convenience wrapper over PeekJSON for the
// common case of reading a single string field out of the body.
func (c *Ctx) QueryJSONString(keys ...string) (string, error) {
	v, err := c.PeekJSON(keys...)
	if err != nil {
		return "", err
	}
	s, err := v.StringBytes()
	if err != nil {
		return "", fmt.Errorf("key path %v is not a string: %w", keys, err)
	}
	return string(s), nil
}

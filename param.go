package arcflow

// bindParams attaches a matched route's path parameters to the
// context. The map came from routeParams's pool by way of the
// router and is released when the context itself is released or reset.
func (c *Ctx) bindParams(params routeParams) {
	c.params = params
}

// releaseParams returns the context's parameter map to its pool, if
// one is attached.
func (c *Ctx) releaseParams() {
	if c.params != nil {
		releaseParamsMap(c.params)
		c.params = nil
	}
}

// GetParam retrieves a URL parameter matched for the current route.
// It is equivalent to Ctx.Param and kept for callers that prefer the
// longer name.
func (c *Ctx) GetParam(key string) string {
	return c.Param(key)
}

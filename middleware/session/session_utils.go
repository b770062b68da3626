package session

import "github.com/arcflowhq/arcflow"

// getSessionIDFromCookie stores in *sessionID the value of the request
// cookie named cfg.sessionName (cfg.CookieName when that is empty), or
// "" when the request has no such cookie.
func getSessionIDFromCookie(c *arcflow.Ctx, cfg *Config, sessionID *string) {
	name := cfg.sessionName
	if name == "" {
		name = cfg.CookieName
	}
	*sessionID = parseCookies(c.Request.Header.Get(arcflow.HeaderCookie))[name]
}

// Package httpapi is the reference HTTP surface for an authcore Engine.
//
// Routes live under /api/auth. Successful bodies are JSON:API single-resource
// documents; failures are RFC 7807 problem documents. The refresh token only
// ever travels in the HttpOnly cookie built by Engine.RefreshCookie.
package httpapi

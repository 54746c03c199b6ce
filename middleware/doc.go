// Package middleware adapts authcore.Engine to net/http.
//
// # Middleware
//
//   - [Guard] requires a valid access token in the Authorization header.
//   - [Optional] attaches the access result when a valid token is present and
//     lets anonymous requests through.
//   - [ClientMetadata] copies the client IP and User-Agent into the request
//     context so sessions and audit events record them.
//
// Guards call Engine.ValidateAccess only. They never touch the session store,
// so an access token stays usable until it expires even after logout.
package middleware

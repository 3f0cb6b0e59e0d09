// Package server provides HTTP routing, middleware, and handlers for the roomcast API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns and mounts every route under a prefix
// ("/api" for the [Server]).
//
// # Sessions
//
// Every route except the health check and the OAuth callback runs behind the session middleware, which mints
// the roomcast_session cookie. The session id is the caller's identity: the session that created a room is its host.
//
// # OAuth Callback Handler
//
// [CallbackHandler] completes the Spotify authorization code flow. The state parameter carries the room code, which is
// looked up to find the host the credential belongs to. On success the host is redirected to the room page of the
// frontend.
//
// # Errors
//
// Handlers return {"error": message} bodies. Domain errors map to statuses as follows:
//   - room not found, not in a room, not authenticated: 404
//   - forbidden: 403
//   - invalid input, no active track, invalid state: 400
//   - Spotify failures: 502 (upstream status and body are logged, not returned)
//   - anything else: 500
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server

// Package session ties the opaque per-browser session id to a room.
//
// [Middleware] mints the id as a UUID cookie; the id doubles as the identity key of a host,
// so the session that created a room is its host. [Binder] keeps the session's room pointer
// and resolves the role it holds there.
package session

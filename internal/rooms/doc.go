// Package rooms is the room directory: lookup by code, create-or-update per host and
// host-only settings updates over a [Store].
//
// Codes are short random strings over [A-Z0-9]. Uniqueness of codes and hosts is enforced by
// the store; the directory retries on a code collision and falls back to update when a
// concurrent request already created the host's room.
package rooms

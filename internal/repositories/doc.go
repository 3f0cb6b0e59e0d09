// Package repositories implements SQLite persistence for rooms, credentials and session bindings.
//
// Key Implementations:
//   - [RoomRepository] : rooms with unique code and unique host key
//   - [CredentialRepository] : Spotify credentials, upserted by identity key
//   - [SessionRepository] : session to room pointers
//
// Uniqueness is enforced by the schema, not by read-then-write checks. Constraint failures are
// translated to the sentinel errors in the shared package so callers can retry (a colliding room
// code) or fall back (a host that already owns a room).
package repositories

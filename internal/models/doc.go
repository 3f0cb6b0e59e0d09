// Package models defines the domain entities shared by the room, session, vote and playback layers.
//
//   - [Room] : a listening room owned by exactly one host, addressed by a short code
//   - [Credential] : the Spotify OAuth credential stored for a host identity
//   - [Song] : the normalized currently-playing shape reported to pollers
//   - [Role] : whether a session acts as the host of a room or as a guest
//
// Identity keys are opaque session ids minted by the HTTP layer; a room's HostKey and a
// credential's IdentityKey hold the same value for the same person.
package models

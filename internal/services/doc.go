// Package services talks to Spotify on behalf of room hosts.
//
// # Spotify Client
//
// [SpotifyClient] wraps an [oauth2.Config] for the authorization code flow: it builds the
// authorize URL (state carries the room code), exchanges codes and performs refresh grants
// with client basic auth. It does not keep tokens itself.
//
// # Token Manager
//
// [TokenManager] owns stored credentials. [TokenManager.EnsureValidToken] loads the host's
// credential and refreshes it when expired. Refreshes are keyed by identity through
// [singleflight.Group], so concurrent requests for one host spend the refresh token once and
// all observe the same result. A failed refresh returns [shared.ErrRefreshFailed] and leaves
// the stored row as it was.
//
// # Playback Proxy
//
// [Proxy] is the only path to the Web API. Each call ensures a token, waits on a shared
// [rate.Limiter], and runs under a timeout. Failures surface as [*UpstreamError], which
// matches [shared.ErrUpstream] with [errors.Is]. Calls are not retried.
//
// # Error Handling
//
//   - [shared.ErrNoCredential] : host never authorized
//   - [shared.ErrRefreshFailed] : expired token could not be refreshed
//   - [shared.ErrAuthFailed] : code exchange rejected
//   - [shared.ErrNothingPlaying] : player idle or no current item
package services

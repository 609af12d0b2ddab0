// Package tokenmanager owns the in-memory Sketchfab OAuth2 credential set and
// keeps it usable: it validates token expiry, refreshes through the upstream
// token endpoint, and writes every successful rotation through to the
// credential store.
//
// # States
//
// The manager is a small state machine over one credential set:
//
//	uninitialized -> no token material at all
//	valid         -> access token present and outside the expiry margin
//	expired       -> access token missing or stale; refresh material may exist
//	refreshing    -> a refresh call is in flight
//	invalid       -> upstream rejected the refresh; unrecoverable until the
//	                 operator supplies fresh credentials
//
// # Concurrency
//
// Token may be called from any number of goroutines. State transitions are
// mutex-guarded and the refresh network call is deduplicated through
// singleflight: callers that arrive while a refresh is in flight wait for its
// outcome instead of issuing a duplicate request. Sketchfab rotates refresh
// tokens, so duplicate refresh calls would invalidate each other. The refresh
// runs on a context detached from its callers; cancelling a waiting caller
// never cancels the shared upstream call.
package tokenmanager

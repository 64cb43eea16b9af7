// Package routing selects which provider serves each request and tracks
// per-provider rate limit state.
//
// A Pool holds the configured providers and a selection strategy. For
// every dispatched request the pool produces an ordered candidate list;
// the dispatcher tries candidates in order and moves to the next only when
// the current one is rate limited (HTTP 429 from the backend). Any other
// failure is returned to the client without failover.
//
// Two strategies exist: round_robin rotates a weighted cursor across
// enabled providers (the cursor advances once per request, regardless of
// outcome), and fallback always prefers the earliest configured provider.
// Rate limited providers carry an until-timestamp and re-enter rotation
// lazily once it passes; no background timer is involved.
package routing

// Package ulsdk is the Go client for the Universal License Server. It
// validates license keys, caches results with TTL and domain-expiry
// invalidation, retries transient failures with exponential backoff,
// and verifies server-issued signatures for offline trust.
//
// # Quick start
//
//	client, err := ulsdk.New(ulsdk.DefaultConfig("https://license.example.com"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	resp, err := client.ValidateLicense(ctx, "ABC-ORG-2025-1111-2222-3333")
//	if err != nil {
//		// Infrastructure failure: server unreachable, auth rejected.
//	}
//	if !resp.Valid {
//		// Domain failure: resp.Reason says EXPIRED, REVOKED, ...
//	}
//
// Domain failures and infrastructure failures travel on different
// channels so callers can distinguish "your license is expired" from
// "we couldn't reach the server".
//
// # Offline verification
//
// Fetch the server's signing keys once while online, then verify
// cached validation results without a connection:
//
//	keys, _ := client.GetPublicKeys(ctx)
//	result, err := client.VerifyOffline(resp, keys)
//	if result.Valid {
//		// resp was signed by the server; result.Kid names the key.
//	}
//
// Signing-key rotation is handled transparently: with no kid pinned,
// every listed key is tried in order, so signatures issued under an
// older, still-listed key keep verifying.
//
// # Caching
//
// Validation results are cached per (license key, device) with a
// configurable TTL. The TTL bounds staleness of the fetch; the
// license's own expiry bounds validity, and whichever is stricter wins
// on every read. Backends: process memory (default), a persistent
// file (optionally encrypted at rest), or a session-scoped temp file.
// Inject any store.Store implementation to use your own.
package ulsdk

// Package fetch downloads recipe artifacts into a scoped workspace,
// verifies their SHA-256 digest and unpacks them for installation.
//
// Download failures are classified as timeout, network or not-found and are
// never retried here; retrying is the caller's decision.
package fetch

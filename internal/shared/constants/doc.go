// Package constants centralizes configuration defaults shared across the CLI.
//
// File permissions, worker-pool size, check timeouts and walk limits live here
// so cmd/ and the internal pipeline packages agree on the same values without
// introducing import cycles.
package constants

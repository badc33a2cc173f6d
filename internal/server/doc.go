// Package server implements the upcheck HTTP API surface.
//
// Owns:
//   - Request normalization, routing, and the response contract
//   - The users/tokens/checks handler groups and their input validation
//   - API-level invariants: ownership checks, the per-user check cap,
//     cross-record consistency between users and their checks
//
// Does not own:
//   - Storage internals (storage.Store implementations)
//   - Token lifetime rules (auth.Service)
//   - Check execution and alerting (worker)
//
// Invariants:
//   - JSON responses are consistent via writeJSON
//   - Every ownership-sensitive operation verifies the token against the
//     resource's owning phone before touching storage
//   - Handlers never cache records across calls; every operation re-reads
//     the authoritative copy from the store
package server

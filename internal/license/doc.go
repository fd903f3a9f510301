// Package license implements the license validation core: license lookup
// contracts, derived status computation, allowed-domain matching, the
// seat/overage entitlement policy and the access decision engine that
// combines them into a single ALLOW/DENY verdict.
//
// The core is a pure, synchronous decision function over externally
// supplied snapshots. It keeps no shared mutable state, caches nothing
// across calls, and performs one logical read per referenced entity per
// Decide invocation. Deny outcomes are values (domain.Verdict with a
// reason code), never errors; errors are reserved for genuine storage
// faults so callers can tell "this license is bad" from "the service is
// broken".
package license

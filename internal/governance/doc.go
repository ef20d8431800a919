// Package governance holds the gateway's runtime safety controls: the
// per-client sliding-window rate limiter on the request path, and the circuit
// breaker and retry schedule that keep best-effort audit delivery from
// hammering a failing collector.
//
// The limiter is reconfigurable at runtime so configuration reloads take
// effect without dropping tracked windows.
package governance

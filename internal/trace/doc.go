// Package trace turns kernel bus events into operator-visible output: a
// rate-limited structured log of context switches and, optionally, a
// persistent store for offline latency analysis.
//
// The service is a plain bus subscriber; it can fall arbitrarily far
// behind and the kernel will drop events rather than wait.
package trace

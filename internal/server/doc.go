// Package server runs the local observability HTTP endpoint.
//
// It provides lifecycle orchestration for the metrics server: startup, signal
// handling and graceful shutdown, including a hook for flushing engine state
// before the process exits.
package server

// Package features provides higher-level abstractions over the signet
// reactive core.
//
// # Subsystems
//
// The features package is organized into several subsystems:
//
//   - future: Async derived values with Idle/Waiting/Success/Error status
//   - history: Undo/redo over recorded signal writes
//   - telemetry: Prometheus metrics and OpenTelemetry spans for the write chain
//   - devtools: A change-record inspector served over HTTP and WebSocket
//
// All four are built on the same two extension points of the core: the
// middleware chain for observing writes, and the notifier/listener contract
// for reactive composition. None of them touch signal internals.
//
// # Usage
//
// Each subsystem is in its own sub-package and can be imported independently:
//
//	import "github.com/signet-dev/signet/pkg/features/future"
//	import "github.com/signet-dev/signet/pkg/features/history"
//
// See the individual package documentation for detailed usage examples.
package features

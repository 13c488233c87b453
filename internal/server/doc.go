// Package server implements the WebSocket transport for the CityChat relay.
//
// The implementation is organized into specialized files for configuration,
// hub management, clients, wire events, routing, and HTTP handlers to keep
// the codebase maintainable and testable as the project grows. All room and
// session semantics live in internal/chat; this package only moves bytes.
package server

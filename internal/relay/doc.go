// Package relay provides WebSocket connection handling and message routing
// for robot sessions.
//
// The package implements:
//   - Client: One WebSocket connection (robot or driver) with a buffered
//     outbound queue and write pump
//   - Handler: Validates inbound messages, annotates them with their origin
//     connection, and fans them out to the target robot's session
//   - Service: Wires the identity registry and session manager events to
//     socket broadcasts
//
// Delivery guarantees:
//   - Messages from one origin are relayed in submission order; each
//     connection has a single read pump feeding the handler synchronously
//   - Control, click-to-drive and health traffic is scoped to the target
//     robot's session members; an unknown target delivers to nobody
//   - Malformed messages are dropped and logged, never surfaced to peers
package relay

// Package session implements the session-scoped relay core for PadLink.
//
// The session package implements:
//   - Per-session membership sets for controller and game clients
//   - Role-restricted message routing (controllers drive games)
//   - Status notification on every membership change
//   - Thread-safe session storage with unique ID generation
//   - Expiry sweeping of abandoned sessions
//
// Core Types:
//
// Session holds the controller and game membership sets for one game
// instance and routes messages between them. Registry owns every live
// Session and is the only way to reach one; a Session removed from the
// Registry is destroyed and must not be mutated further.
//
// Member is the transport-side handle a Session delivers to. The
// websocket transport implements it; tests substitute fakes.
//
// Session Identifiers:
//
// Sessions use 8-character hexadecimal IDs generated from 4 bytes of
// cryptographic randomness. The registry regenerates on collision,
// though with this ID space collisions are treated as practically
// impossible.
//
// Routing:
//
// A frame is relayed only when its sender is currently a member of the
// session's controller set, and only to the game set. Frames from game
// members, or from connections not registered in the session, are
// dropped silently. Controllers drive games; games do not talk back
// through this channel.
//
// Concurrency:
//
// A per-session mutex serializes every mutation of and iteration over
// the membership sets, so a client disconnecting mid-broadcast cannot
// corrupt the fan-out loop. Deliveries are non-blocking; a failed send
// to one member is logged and never aborts delivery to the rest. The
// registry map is guarded by its own RWMutex.
package session

// Package websocket provides the websocket transport for the PadLink
// relay server.
//
// The websocket package implements:
//   - Connection upgrade and lifecycle management
//   - The per-connection registration state machine
//   - Frame decoding and routing into the session core
//   - Keepalive via ping/pong with read deadlines
//
// Architecture:
//
// Each connection is handled by a dedicated Client with two goroutines:
// a read pump that decodes inbound frames and drives the state machine,
// and a write pump that drains a buffered send channel. The send
// channel makes deliveries non-blocking; when a peer is too slow its
// frames are dropped and the connection is eventually reaped by its
// own close handling, never by a broadcasting peer.
//
// Message Protocol:
//
// Frames are UTF-8 text containing JSON objects discriminated by a
// "type" field:
//
//	client → server: {"type":"register","sessionId":"ab12cd34","client":"controller"}
//	server → client: {"type":"registered","sessionId":"ab12cd34","client":"controller","timestamp":1712345678901}
//	server → client: {"type":"error","message":"Invalid session","timestamp":1712345678901}
//	server → client: {"type":"session_status","sessionId":"ab12cd34","games":1,"controllers":1,"timestamp":1712345678901}
//
// Any other frame from a registered controller is relayed verbatim to
// the game members of its session. Malformed frames are dropped and
// logged.
//
// Connection Lifecycle:
//
// 1. Client connects unregistered
// 2. Client sends a register frame naming a session ID and role
// 3. On success the connection is attached to the session and acked
// 4. Controller frames are relayed; status updates are pushed on
//    membership changes
// 5. Close or transport error detaches the connection from its session
//
// A connection registers at most once; a second register frame is
// rejected with an error frame and changes nothing.
package websocket

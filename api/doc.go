// Package api provides the HTTP surface of the PadLink relay server.
//
// The api package implements:
//   - Session creation and inspection endpoints
//   - WebSocket upgrade handling
//   - Prometheus metrics exposition
//   - Static file serving for the game and controller pages
//
// Endpoints:
//
// Session Management:
//   - POST /api/create-session - Create a session, returns its ID
//   - GET  /api/session/{id}   - Existence and member counts for a session
//   - GET  /api/sessions       - List live sessions, newest first
//
// Operational:
//   - GET /healthz - Liveness check
//   - GET /metrics - Prometheus exposition
//
// Transport and Pages:
//   - GET /ws         - WebSocket upgrade; connections register in-band
//   - GET /controller - Controller page for phones
//   - /               - Static game files
//
// Request/Response Format:
//
// All API endpoints return JSON. Session lookups always answer 200 and
// report absence through the "exists" field:
//
//	{"exists": false, "games": 0, "controllers": 0}
//
// Errors are returned as JSON with appropriate HTTP status codes:
//
//	{"error": "error message"}
package api

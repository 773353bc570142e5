package websocket

// Frames are JSON objects carrying a "type" discriminator. Controller
// input frames are opaque to the server and relayed verbatim, so only
// the control frames the server itself produces or consumes are
// modeled here.

// frameHeader is the minimal decode used to route an inbound frame.
type frameHeader struct {
	Type string `json:"type"`
}

// registerRequest attaches a connection to a session under a role.
type registerRequest struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Client    string `json:"client"`
}

// registeredMessage acknowledges a successful registration.
type registeredMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Client    string `json:"client"`
	Timestamp int64  `json:"timestamp"`
}

// errorMessage reports a failed request back to the sender. The
// connection remains usable afterward.
type errorMessage struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

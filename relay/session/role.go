package session

// Role is the registered function of a connection within a session.
type Role int

const (
	// RoleUnknown is the zero value; connections that have not
	// registered, or registered with an unrecognized role string,
	// carry it. It never grants membership.
	RoleUnknown Role = iota
	RoleController
	RoleGame
)

// ParseRole maps the wire-level role string to a Role. The second
// return value reports whether the string named a known role.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "controller":
		return RoleController, true
	case "game":
		return RoleGame, true
	default:
		return RoleUnknown, false
	}
}

func (r Role) String() string {
	switch r {
	case RoleController:
		return "controller"
	case RoleGame:
		return "game"
	default:
		return "unknown"
	}
}

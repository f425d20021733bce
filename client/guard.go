package client

// Decision is the route guard verdict for a protected destination.
type Decision int

const (
	// Allow renders the protected destination.
	Allow Decision = iota
	// Wait holds rendering while the session is still settling.
	Wait
	// RedirectToLogin sends the visitor to the login route.
	RedirectToLogin
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Wait:
		return "wait"
	case RedirectToLogin:
		return "redirect_to_login"
	default:
		return "unknown"
	}
}

// Guard decides from a session snapshot whether a protected route may
// render. It is a pure function of the state: loading holds, anything
// unauthenticated redirects.
func Guard(state State) Decision {
	if state.Loading {
		return Wait
	}
	if !state.IsAuthenticated {
		return RedirectToLogin
	}
	return Allow
}

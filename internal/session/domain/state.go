package domain

// State is a step of the authorization state machine.
type State int

const (
	// StateUninitialized is the initial state and the state after an abort.
	StateUninitialized State = iota
	// StateAwaitingStatement holds a fresh session key and nonce while the statement is built.
	StateAwaitingStatement
	// StateSigning waits for the root signer.
	StateSigning
	// StateActive holds a signed session inside its validity window.
	StateActive
	// StateExpired is reached once the window ends or the session key is destroyed.
	StateExpired
)

var stateNames = map[State]string{
	StateUninitialized:     "uninitialized",
	StateAwaitingStatement: "awaiting_statement",
	StateSigning:           "signing",
	StateActive:            "active",
	StateExpired:           "expired",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

package domain

// Action classifies what a signal asks the engine to do.
type Action string

const (
	ActionEntry Action = "ENTRY"
	ActionExit  Action = "EXIT"
)

// Signal is one validated inbound instruction.
type Signal struct {
	Action        Action
	Direction     Side
	Reason        string // raw tag from the sender, e.g. "TP1", "SL_HARD", "STEP 2"
	Strength      float64
	CorrelationID string
}

// Exit reason tokens recognized by the exit ladder. Anything else on an EXIT
// signal is treated as a full close.
const (
	ReasonTP1    = "TP1"
	ReasonTP2    = "TP2"
	ReasonSLSlow = "SL_SLOW"
	ReasonSLHard = "SL_HARD"
)

package narration

// StateType represents the current state of the narration pipeline.
type StateType int

const (
	// StateIdle indicates nothing is being synthesized or spoken.
	StateIdle StateType = iota
	// StateRequesting indicates a remote synthesis call is in flight.
	StateRequesting
	// StateFallback indicates host-local synthesis is running after a
	// remote failure.
	StateFallback
	// StatePlaying indicates utterance audio is playing.
	StatePlaying
)

// String returns the string representation of the state.
func (s StateType) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateFallback:
		return "fallback"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// stateMachine manages narration state transitions. Every state can
// drop back to idle: cancellation interrupts any stage.
type stateMachine struct {
	current     StateType
	transitions map[StateType][]StateType
}

func newStateMachine() *stateMachine {
	return &stateMachine{
		current: StateIdle,
		transitions: map[StateType][]StateType{
			StateIdle:       {StateRequesting},
			StateRequesting: {StatePlaying, StateFallback, StateIdle},
			StateFallback:   {StatePlaying, StateIdle},
			StatePlaying:    {StateIdle},
		},
	}
}

// transition attempts to move to the specified state.
func (sm *stateMachine) transition(to StateType) bool {
	valid, ok := sm.transitions[sm.current]
	if !ok {
		return false
	}
	for _, state := range valid {
		if state == to {
			sm.current = to
			return true
		}
	}
	return false
}

// reset forces the machine back to idle from any state.
func (sm *stateMachine) reset() {
	sm.current = StateIdle
}

func (sm *stateMachine) state() StateType {
	return sm.current
}

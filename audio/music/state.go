package music

// StateType represents the current state of the music player.
type StateType int

const (
	// StateIdle indicates no mood has been requested yet.
	StateIdle StateType = iota
	// StatePlaying indicates a track is playing (or paused mid-track).
	StatePlaying
	// StateSwitching indicates the player is fading out the current
	// track before starting a different mood.
	StateSwitching
	// StateStopped indicates playback was stopped explicitly.
	StateStopped
)

// String returns the string representation of the state.
func (s StateType) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateSwitching:
		return "switching"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// stateMachine manages the player's state transitions.
type stateMachine struct {
	current     StateType
	transitions map[StateType][]StateType
}

func newStateMachine() *stateMachine {
	return &stateMachine{
		current: StateIdle,
		transitions: map[StateType][]StateType{
			StateIdle:      {StatePlaying},
			StatePlaying:   {StateSwitching, StateStopped, StatePlaying},
			StateSwitching: {StatePlaying, StateStopped},
			StateStopped:   {StatePlaying},
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

func (sm *stateMachine) state() StateType {
	return sm.current
}

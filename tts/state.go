package tts

import "time"

// StateType represents the current state of the playback engine.
type StateType int

const (
	// StateIdle indicates nothing is loaded.
	StateIdle StateType = iota
	// StatePreparing indicates text is being processed.
	StatePreparing
	// StatePlaying indicates segments are being spoken.
	StatePlaying
	// StatePaused indicates playback is paused at a segment.
	StatePaused
	// StateCompleted indicates the last segment finished.
	StateCompleted
	// StateError indicates a fatal synthesis failure. It is left for
	// StateIdle immediately after the failure is reported.
	StateError
)

// String returns the string representation of the state.
func (s StateType) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateCompleted:
		return "completed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only view of the engine published to observers.
type Snapshot struct {
	State              StateType
	IsPlaying          bool
	IsPaused           bool
	CurrentTime        time.Duration // Derived from the segment index
	TotalTime          time.Duration // Estimated, see Metadata
	CurrentSegmentText string
	DetectedLanguage   Language
	Confidence         float64
	CurrentVoiceName   string

	Index         int     // Current segment index
	SegmentCount  int     // Number of segments loaded
	Fraction      float64 // Index / SegmentCount
	Rate          float64 // User rate multiplier
	PersonalityID string
	Listened      time.Duration // Wall-clock time spent playing since Speak
}

// CanPause returns true if playback can be paused.
func (s Snapshot) CanPause() bool {
	return s.State == StatePlaying
}

// CanResume returns true if playback can be resumed.
func (s Snapshot) CanResume() bool {
	return s.State == StatePaused
}

// Loaded returns true if a document is loaded.
func (s Snapshot) Loaded() bool {
	return s.SegmentCount > 0
}

// StateMachine manages state transitions for the playback engine.
type StateMachine struct {
	current     StateType
	transitions map[StateType][]StateType
	onEnter     map[StateType]func()
	onExit      map[StateType]func()
}

// NewStateMachine creates a new state machine with valid transitions.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateIdle,
		transitions: map[StateType][]StateType{
			StateIdle:      {StatePreparing},
			StatePreparing: {StatePlaying, StateIdle, StateError},
			StatePlaying:   {StatePaused, StateIdle, StateCompleted, StateError, StatePreparing},
			StatePaused:    {StatePlaying, StateIdle, StatePreparing, StateError},
			StateCompleted: {StatePreparing, StateIdle, StatePlaying},
			StateError:     {StateIdle},
		},
		onEnter: make(map[StateType]func()),
		onExit:  make(map[StateType]func()),
	}
}

// CanTransition reports whether moving to the given state is allowed.
func (sm *StateMachine) CanTransition(to StateType) bool {
	for _, state := range sm.transitions[sm.current] {
		if state == to {
			return true
		}
	}
	return false
}

// Transition attempts to transition to the specified state.
func (sm *StateMachine) Transition(to StateType) bool {
	if !sm.CanTransition(to) {
		return false
	}

	if exitFn, ok := sm.onExit[sm.current]; ok && exitFn != nil {
		exitFn()
	}

	sm.current = to

	if enterFn, ok := sm.onEnter[to]; ok && enterFn != nil {
		enterFn()
	}

	return true
}

// Current returns the current state.
func (sm *StateMachine) Current() StateType {
	return sm.current
}

// OnEnter registers a callback for entering a state.
func (sm *StateMachine) OnEnter(state StateType, fn func()) {
	sm.onEnter[state] = fn
}

// OnExit registers a callback for exiting a state.
func (sm *StateMachine) OnExit(state StateType, fn func()) {
	sm.onExit[state] = fn
}

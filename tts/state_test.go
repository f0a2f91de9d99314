package tts

import (
	"testing"
)

// TestStateTypeString tests the string representation of states.
func TestStateTypeString(t *testing.T) {
	tests := []struct {
		state    StateType
		expected string
	}{
		{StateIdle, "idle"},
		{StatePreparing, "preparing"},
		{StatePlaying, "playing"},
		{StatePaused, "paused"},
		{StateCompleted, "completed"},
		{StateError, "error"},
		{StateType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("StateType.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestSnapshotHelpers tests the derived snapshot accessors.
func TestSnapshotHelpers(t *testing.T) {
	tests := []struct {
		name       string
		snapshot   Snapshot
		canPause   bool
		canResume  bool
		loaded     bool
	}{
		{"idle", Snapshot{State: StateIdle}, false, false, false},
		{"playing", Snapshot{State: StatePlaying, SegmentCount: 3}, true, false, true},
		{"paused", Snapshot{State: StatePaused, SegmentCount: 3}, false, true, true},
		{"completed", Snapshot{State: StateCompleted, SegmentCount: 3, Index: 3}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.snapshot.CanPause(); got != tt.canPause {
				t.Errorf("CanPause() = %v, want %v", got, tt.canPause)
			}
			if got := tt.snapshot.CanResume(); got != tt.canResume {
				t.Errorf("CanResume() = %v, want %v", got, tt.canResume)
			}
			if got := tt.snapshot.Loaded(); got != tt.loaded {
				t.Errorf("Loaded() = %v, want %v", got, tt.loaded)
			}
		})
	}
}

// TestNewStateMachine tests state machine creation.
func TestNewStateMachine(t *testing.T) {
	sm := NewStateMachine()

	if sm == nil {
		t.Fatal("Expected non-nil state machine")
	}

	if sm.Current() != StateIdle {
		t.Errorf("Initial state = %v, want StateIdle", sm.Current())
	}

	if sm.transitions == nil {
		t.Error("Transitions map should be initialized")
	}
	if sm.onEnter == nil || sm.onExit == nil {
		t.Error("Callback maps should be initialized")
	}
}

// TestStateMachineTransitions tests valid and invalid state transitions.
func TestStateMachineTransitions(t *testing.T) {
	tests := []struct {
		name        string
		from        StateType
		to          StateType
		shouldAllow bool
	}{
		// Valid transitions
		{"idle to preparing", StateIdle, StatePreparing, true},
		{"preparing to playing", StatePreparing, StatePlaying, true},
		{"preparing to idle", StatePreparing, StateIdle, true},
		{"playing to paused", StatePlaying, StatePaused, true},
		{"playing to completed", StatePlaying, StateCompleted, true},
		{"playing to error", StatePlaying, StateError, true},
		{"playing to idle", StatePlaying, StateIdle, true},
		{"playing to preparing", StatePlaying, StatePreparing, true},
		{"paused to playing", StatePaused, StatePlaying, true},
		{"paused to idle", StatePaused, StateIdle, true},
		{"completed to playing", StateCompleted, StatePlaying, true},
		{"completed to preparing", StateCompleted, StatePreparing, true},
		{"error to idle", StateError, StateIdle, true},

		// Invalid transitions
		{"idle to playing", StateIdle, StatePlaying, false},
		{"idle to paused", StateIdle, StatePaused, false},
		{"idle to error", StateIdle, StateError, false},
		{"paused to completed", StatePaused, StateCompleted, false},
		{"completed to paused", StateCompleted, StatePaused, false},
		{"error to playing", StateError, StatePlaying, false},
		{"error to preparing", StateError, StatePreparing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewStateMachine()

			// Set initial state
			sm.current = tt.from

			result := sm.Transition(tt.to)
			if result != tt.shouldAllow {
				t.Errorf("Transition from %v to %v: got %v, want %v",
					tt.from, tt.to, result, tt.shouldAllow)
			}

			if tt.shouldAllow && sm.Current() != tt.to {
				t.Errorf("State not changed: current = %v, expected = %v",
					sm.Current(), tt.to)
			} else if !tt.shouldAllow && sm.Current() != tt.from {
				t.Errorf("State changed on invalid transition: current = %v, expected = %v",
					sm.Current(), tt.from)
			}
		})
	}
}

// TestStateMachineCallbacks tests enter and exit callback ordering.
func TestStateMachineCallbacks(t *testing.T) {
	sm := NewStateMachine()

	callOrder := []string{}

	sm.OnExit(StateIdle, func() {
		callOrder = append(callOrder, "exit-idle")
	})
	sm.OnEnter(StatePreparing, func() {
		callOrder = append(callOrder, "enter-preparing")
	})
	sm.OnExit(StatePreparing, func() {
		callOrder = append(callOrder, "exit-preparing")
	})
	sm.OnEnter(StatePlaying, func() {
		callOrder = append(callOrder, "enter-playing")
	})

	sm.Transition(StatePreparing)
	sm.Transition(StatePlaying)

	expectedOrder := []string{
		"exit-idle",
		"enter-preparing",
		"exit-preparing",
		"enter-playing",
	}

	if len(callOrder) != len(expectedOrder) {
		t.Fatalf("Expected %d callbacks, got %d", len(expectedOrder), len(callOrder))
	}

	for i, expected := range expectedOrder {
		if callOrder[i] != expected {
			t.Errorf("Callback %d: got %s, want %s", i, callOrder[i], expected)
		}
	}
}

// TestStateMachineInvalidTransitionSkipsCallbacks tests that a rejected
// transition runs no callbacks.
func TestStateMachineInvalidTransitionSkipsCallbacks(t *testing.T) {
	sm := NewStateMachine()

	called := false
	sm.OnExit(StateIdle, func() { called = true })

	if sm.Transition(StatePlaying) {
		t.Error("Should not allow transition from Idle to Playing")
	}
	if called {
		t.Error("Exit callback ran for a rejected transition")
	}
	if sm.Current() != StateIdle {
		t.Errorf("State should remain Idle, got %v", sm.Current())
	}
}

// TestStateMachineLifecycle tests a full playback lifecycle.
func TestStateMachineLifecycle(t *testing.T) {
	sm := NewStateMachine()

	// Idle -> Preparing -> Playing -> Paused -> Playing -> Completed -> Playing -> Error -> Idle
	steps := []StateType{
		StatePreparing,
		StatePlaying,
		StatePaused,
		StatePlaying,
		StateCompleted,
		StatePlaying,
		StateError,
		StateIdle,
	}

	for i, to := range steps {
		if !sm.Transition(to) {
			t.Fatalf("Transition %d from %v to %v rejected", i, sm.Current(), to)
		}
		if sm.Current() != to {
			t.Errorf("After transition %d: state = %v, want %v", i, sm.Current(), to)
		}
	}
}

// TestStateMachineNilCallbacks tests that nil callbacks don't crash.
func TestStateMachineNilCallbacks(t *testing.T) {
	sm := NewStateMachine()

	sm.OnEnter(StatePreparing, nil)
	sm.OnExit(StateIdle, nil)

	if !sm.Transition(StatePreparing) {
		t.Error("Transition should succeed even with nil callbacks")
	}
}

// Package fsm defines the dictation run lifecycle states and transitions.
package fsm

import (
	"errors"
	"fmt"
)

type State string

type Event string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateTranscribing State = "transcribing"
	StateInserting    State = "inserting"
	StateError        State = "error"
)

const (
	EventStart       Event = "start"
	EventStop        Event = "stop"
	EventCancel      Event = "cancel"
	EventTranscribed Event = "transcribed"
	EventInserted    Event = "inserted"
	EventFail        Event = "fail"
	EventReset       Event = "reset"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnknownState      = errors.New("unknown state")
)

// table lists the legal edges. EventFail is accepted everywhere and is not
// listed.
var table = map[State]map[Event]State{
	StateIdle:         {EventStart: StateRecording},
	StateRecording:    {EventStop: StateTranscribing, EventCancel: StateIdle},
	StateTranscribing: {EventTranscribed: StateInserting},
	StateInserting:    {EventInserted: StateIdle},
	StateError:        {EventReset: StateIdle},
}

// Transition returns the state reached from current on event. On error the
// current state is returned unchanged.
func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}
	edges, ok := table[current]
	if !ok {
		return current, fmt.Errorf("%w %q", ErrUnknownState, current)
	}
	next, ok := edges[event]
	if !ok {
		return current, fmt.Errorf("%w: %s --(%s)--> ?", ErrInvalidTransition, current, event)
	}
	return next, nil
}

// Busy reports whether a run is in flight in state s.
func Busy(s State) bool {
	return s != StateIdle
}

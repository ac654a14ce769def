package authclient

// StateObserver is notified after every session status change. Observers run
// while the manager holds its state lock and must not call back into it.
type StateObserver func(from, to Status)

// sessionStateMachine centralizes the allowed session transitions. The
// manager consults it on every status change so an impossible sequence
// (e.g. refreshing out of a logged-out session) surfaces as an error
// instead of silent state corruption.
type sessionStateMachine struct {
	transitions map[Status]map[Status]struct{}
	observer    StateObserver
	logger      Logger
}

func newSessionStateMachine(logger Logger, observer StateObserver) *sessionStateMachine {
	return &sessionStateMachine{
		logger:   logger,
		observer: observer,
		transitions: map[Status]map[Status]struct{}{
			StatusBootstrapping: {
				StatusAuthenticated:   {},
				StatusUnauthenticated: {},
				StatusRefreshing:      {},
			},
			StatusUnauthenticated: {
				StatusAuthenticated: {},
			},
			StatusAuthenticated: {
				StatusRefreshing:      {},
				StatusUnauthenticated: {},
			},
			StatusRefreshing: {
				StatusAuthenticated:   {},
				StatusUnauthenticated: {},
				StatusBootstrapping:   {},
			},
		},
	}
}

// Transition validates and applies a status change, returning the resulting
// status. A same-state transition is a no-op.
func (sm *sessionStateMachine) Transition(from, to Status) (Status, error) {
	if from == to {
		return from, nil
	}

	if !sm.canTransition(from, to) {
		return from, ErrInvalidTransition.WithMetadata(map[string]any{
			"from": from,
			"to":   to,
		})
	}

	if sm.observer != nil {
		sm.observer(from, to)
	}

	return to, nil
}

func (sm *sessionStateMachine) canTransition(from, to Status) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

package booking

// transitions is the appointment state machine. PENDING is the initial
// status; COMPLETED and CANCELLED are terminal. APPROVED -> COMPLETED is only
// driven by the completion worker today, no HTTP caller uses it.
var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusCancelled},
	StatusApproved: {StatusCancelled, StatusCompleted},
}

// CanTransition reports whether the state machine permits from -> to.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

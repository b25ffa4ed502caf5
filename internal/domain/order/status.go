package order

// Status is an order lifecycle state.
type Status string

const (
	StatusPending     Status = "pending"
	StatusPackaging   Status = "packaging"
	StatusReadyToShip Status = "ready_to_ship"
	StatusOnTheWay    Status = "on_the_way"
	StatusDelivered   Status = "delivered"
	StatusCancelled   Status = "cancelled"
)

// flow is the forward-only status sequence. StatusCancelled is not part of
// it: it is reachable from any non-terminal status.
var flow = []Status{
	StatusPending,
	StatusPackaging,
	StatusReadyToShip,
	StatusOnTheWay,
	StatusDelivered,
}

// index returns the position of s in the forward sequence, or -1.
func (s Status) index() int {
	for i, v := range flow {
		if v == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusCancelled || s.index() >= 0
}

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// checkTransition validates moving from -> to. Re-applying the current
// status is allowed.
func checkTransition(from, to Status) error {
	if !to.Valid() {
		return &InvalidTransitionError{From: from, To: to}
	}
	if from == to {
		return nil
	}
	if from.Terminal() {
		return &InvalidTransitionError{From: from, To: to}
	}
	if to == StatusCancelled {
		return nil
	}
	if to.index() < from.index() {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}

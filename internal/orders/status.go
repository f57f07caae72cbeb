package orders

type Status string

const (
	StatusPending   Status = "pending"
	StatusFulfilled Status = "fulfilled"
	StatusCancelled Status = "cancelled"
)

// fulfilled and cancelled are terminal.
var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusFulfilled: true, StatusCancelled: true},
	StatusFulfilled: {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

package quote

// Status is the negotiation state attached to a QUOTE conversation item.
// The recipient resolves a pending quote exactly once. NEGOTIATING is
// reserved for a future counter-offer flow; nothing transitions into it.
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusAccepted    Status = "ACCEPTED"
	StatusDeclined    Status = "DECLINED"
	StatusNegotiating Status = "NEGOTIATING"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:     {StatusAccepted: true, StatusDeclined: true},
	StatusAccepted:    {},
	StatusDeclined:    {},
	StatusNegotiating: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

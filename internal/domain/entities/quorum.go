package entities

// DenialReason explains why an action on a transaction is not allowed
type DenialReason string

const (
	ReasonNone             DenialReason = ""
	ReasonAlreadyExecuted  DenialReason = "ALREADY_EXECUTED"
	ReasonAlreadyConfirmed DenialReason = "ALREADY_CONFIRMED"
	ReasonNotAnOwner       DenialReason = "NOT_AN_OWNER"
	ReasonQuorumNotReached DenialReason = "QUORUM_NOT_REACHED"
)

// Message is the user-facing explanation for the reason.
func (r DenialReason) Message() string {
	switch r {
	case ReasonAlreadyExecuted:
		return "This transaction has already been executed"
	case ReasonAlreadyConfirmed:
		return "You have already confirmed this transaction"
	case ReasonNotAnOwner:
		return "Only wallet owners can act on this transaction"
	case ReasonQuorumNotReached:
		return "Not enough confirmations to execute this transaction"
	default:
		return ""
	}
}

// Verdict is the outcome of a legality check
type Verdict struct {
	Allowed bool         `json:"allowed"`
	Reason  DenialReason `json:"reason,omitempty"`
}

// Allow is the verdict for a legal action.
func Allow() Verdict { return Verdict{Allowed: true} }

// Deny is the verdict for an illegal action.
func Deny(reason DenialReason) Verdict { return Verdict{Allowed: false, Reason: reason} }

// Package gate classifies inbound events before a feature handler runs.
package gate

// Kind is the tag of an Outcome.
type Kind int

const (
	// KindProceed lets the handler run.
	KindProceed Kind = iota
	// KindSkip means the event does not concern the handler.
	KindSkip
	// KindDeny means the sender is not authorized.
	KindDeny
)

func (k Kind) String() string {
	switch k {
	case KindProceed:
		return "proceed"
	case KindSkip:
		return "skip"
	case KindDeny:
		return "deny"
	default:
		return "unknown"
	}
}

// Outcome is the result of a gate check: Proceed(token, args), Skip or
// Deny(reason).
type Outcome struct {
	Kind Kind
	// Token is the command token without prefix, empty for free text.
	Token string
	Args  []string
	// Reason is the user-facing denial message.
	Reason string
	// Err is set when the denial comes from a failed authorization lookup.
	Err error
}

// Proceed builds a proceed outcome.
func Proceed(token string, args []string) Outcome {
	return Outcome{Kind: KindProceed, Token: token, Args: args}
}

// Skip builds a not-concerned outcome.
func Skip() Outcome {
	return Outcome{Kind: KindSkip}
}

// Deny builds a denial outcome.
func Deny(reason string) Outcome {
	return Outcome{Kind: KindDeny, Reason: reason}
}

// DenyError builds a denial caused by an authorization failure.
func DenyError(err error) Outcome {
	return Outcome{Kind: KindDeny, Err: err}
}

// Passed reports whether the check let the event through.
func (o Outcome) Passed() bool {
	return o.Kind == KindProceed
}

package domain

import "fmt"

// NfoStatus is the per-release NFO processing state as stored in releases.nfostatus.
type NfoStatus int

const (
	// StatusFailed means the NFO could not be fetched within the retry budget.
	StatusFailed NfoStatus = -9
	// StatusUnprocessed means the release has not been attempted yet.
	StatusUnprocessed NfoStatus = -1
	// StatusNoNfo means the candidate was classified as not an NFO.
	StatusNoNfo NfoStatus = 0
	// StatusFound means a valid NFO payload is stored.
	StatusFound NfoStatus = 1

	// MinRetryFloor is the lowest floor any retry configuration may produce.
	MinRetryFloor NfoStatus = -8
)

// StateKind is the tagged view of an NfoStatus value.
type StateKind string

const (
	KindUnprocessed StateKind = "unprocessed"
	KindRetrying    StateKind = "retrying"
	KindFound       StateKind = "found"
	KindNoNfo       StateKind = "no_nfo"
	KindQuarantined StateKind = "quarantined"
	KindUnknown     StateKind = "unknown"
)

// State splits the integer encoding into a kind and, for retrying releases,
// the number of failed attempts so far.
type State struct {
	Kind     StateKind
	Attempts int
}

// State returns the tagged view of s.
func (s NfoStatus) State() State {
	switch {
	case s == StatusFound:
		return State{Kind: KindFound}
	case s == StatusNoNfo:
		return State{Kind: KindNoNfo}
	case s == StatusUnprocessed:
		return State{Kind: KindUnprocessed}
	case s == StatusFailed:
		return State{Kind: KindQuarantined}
	case s < StatusUnprocessed && s > StatusFailed:
		return State{Kind: KindRetrying, Attempts: int(StatusUnprocessed - s)}
	}
	return State{Kind: KindUnknown}
}

// IsTerminal reports whether no further fetch attempts happen from s.
func (s NfoStatus) IsTerminal() bool {
	return s == StatusFound || s == StatusNoNfo || s == StatusFailed
}

// String implements fmt.Stringer for logging
func (s NfoStatus) String() string {
	st := s.State()
	if st.Kind == KindRetrying {
		return fmt.Sprintf("retrying(%d)", st.Attempts)
	}
	if st.Kind == KindUnknown {
		return fmt.Sprintf("unknown(%d)", int(s))
	}
	return string(st.Kind)
}

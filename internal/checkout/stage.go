package checkout

// Stage is the checkout wizard's explicit state. The original integer step
// counter doubled as the submit trigger; here every transition is its own
// event and the terminal stages are unambiguous.
type Stage int

const (
	StageAddress Stage = iota + 1
	StageSummary
	StagePayment
	StageSubmitting
	StagePlaced
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageAddress:
		return "address"
	case StageSummary:
		return "summary"
	case StagePayment:
		return "payment"
	case StageSubmitting:
		return "submitting"
	case StagePlaced:
		return "placed"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s Stage) Terminal() bool {
	return s == StagePlaced || s == StageFailed
}

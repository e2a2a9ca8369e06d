package domain

// DuplicatePolicy is the caller-selected rule for resolving a candidate that
// matches existing records on its key fields.
type DuplicatePolicy string

// Supported duplicate handling policies.
const (
	PolicyUnhandled     DuplicatePolicy = "unhandled"
	PolicyKeepBoth      DuplicatePolicy = "keep_both"
	PolicyKeepNew       DuplicatePolicy = "keep_new"
	PolicyKeepOriginals DuplicatePolicy = "keep_originals"
)

// ParseDuplicatePolicy converts the boundary parameter into a policy. An
// absent parameter stays empty so Preferences can supply the default.
func ParseDuplicatePolicy(raw string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(raw) {
	case "", PolicyUnhandled, PolicyKeepBoth, PolicyKeepNew, PolicyKeepOriginals:
		return DuplicatePolicy(raw), nil
	default:
		return "", Invalid("request", ReasonInvalidPolicy, "unknown duplicate_handling %q", raw)
	}
}

// DuplicateOutcome records what a duplicate policy did to an operation.
type DuplicateOutcome string

// Duplicate outcomes reported on Result.
const (
	DuplicatesNone          DuplicateOutcome = ""
	DuplicatesKeptBoth      DuplicateOutcome = "kept_both"
	DuplicatesReplaced      DuplicateOutcome = "replaced_originals"
	DuplicatesKeptOriginals DuplicateOutcome = "kept_originals"
)

// Preferences carries caller preferences that influence engine behaviour.
// It is passed explicitly with each request.
type Preferences struct {
	DuplicateHandling DuplicatePolicy `json:"duplicate_handling"`
}

// Policy returns the explicit policy when set, otherwise the preference
// default, otherwise PolicyUnhandled.
func (p Preferences) Policy(explicit DuplicatePolicy) DuplicatePolicy {
	if explicit != "" {
		return explicit
	}
	if p.DuplicateHandling != "" {
		return p.DuplicateHandling
	}
	return PolicyUnhandled
}

func (p DuplicatePolicy) String() string {
	if p == "" {
		return string(PolicyUnhandled)
	}
	return string(p)
}
